package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod 결제 수단
type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodBoleto     PaymentMethod = "boleto"
)

// Valid 지원하는 결제 수단인지 확인
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodBoleto:
		return true
	}
	return false
}

// RequiresDocument 세금 문서(CPF/CNPJ)가 필수인 결제 수단인지 확인
func (m PaymentMethod) RequiresDocument() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodBoleto
}

// PaymentStatus 결제 상태
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal 최종 상태 여부 (최종 상태는 다른 최종 상태로 전이 불가)
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled, PaymentStatusFailed:
		return true
	}
	return false
}

// ClientStatus 고객 노출용 상태 (processing / approved / failed)
func (s PaymentStatus) ClientStatus() string {
	switch s {
	case PaymentStatusApproved:
		return "approved"
	case PaymentStatusRejected, PaymentStatusCancelled, PaymentStatusFailed:
		return "failed"
	default:
		return "processing"
	}
}

// Order 주문 도메인 모델 (한 번의 체크아웃 시도)
type Order struct {
	ID               string
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	Subtotal         decimal.Decimal
	DiscountAmount   decimal.Decimal
	TotalAmount      decimal.Decimal
	CouponCode       string
	PaymentMethod    PaymentMethod
	Status           PaymentStatus
	GatewayPaymentID string
	RedirectURL      string
	Items            []OrderItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CanTransitionTo 상태 전이 가능 여부 확인
func (o *Order) CanTransitionTo(next PaymentStatus) bool {
	transitions := map[PaymentStatus][]PaymentStatus{
		PaymentStatusPending: {
			PaymentStatusApproved,
			PaymentStatusRejected,
			PaymentStatusCancelled,
			PaymentStatusFailed,
		},
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}

	for _, status := range allowed {
		if status == next {
			return true
		}
	}

	return false
}

// OrderItem 주문 항목 (주문 생성 시 가격 스냅샷, 이후 불변)
type OrderItem struct {
	ID        int64
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	IsBump    bool
}

// PaymentAttempt 결제 게이트웨이 상호작용 기록 (append-only)
type PaymentAttempt struct {
	ID               int64
	OrderID          string
	GatewayPaymentID string
	EventType        string
	Status           string
	RawData          json.RawMessage
	CreatedAt        time.Time
}

const (
	AttemptEventPaymentCreated  = "payment_created"
	AttemptEventWebhookReceived = "webhook_received"
)
