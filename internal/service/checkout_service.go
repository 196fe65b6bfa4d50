package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/common/events"
	"github.com/kyungseok/storefront-checkout-go/internal/discount"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
	"github.com/kyungseok/storefront-checkout-go/internal/gateway"
	"github.com/kyungseok/storefront-checkout-go/internal/pricing"
	"github.com/kyungseok/storefront-checkout-go/internal/repository"
)

// PaymentGateway 결제 게이트웨이 인터페이스
type PaymentGateway interface {
	CreatePayment(ctx context.Context, input gateway.CreatePaymentInput) (*gateway.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
}

// CustomerInfo 구매자 정보
type CustomerInfo struct {
	Name     string
	Email    string
	Phone    string
	Document string
}

// CheckoutCommand 체크아웃 제출 커맨드
type CheckoutCommand struct {
	// OrderID 클라이언트 재시도용 식별자 (비어 있으면 새로 생성)
	OrderID         string
	ProductID       string
	Customer        CustomerInfo
	SelectedBumpIDs []string
	CouponCode      string
	PaymentMethod   domain.PaymentMethod
	Card            *gateway.CardData
	Installments    int
}

// PixPayload 즉시이체 결제 응답 페이로드
type PixPayload struct {
	QRCode       string `json:"qrCode"`
	QRCodeBase64 string `json:"qrCodeBase64"`
	TicketURL    string `json:"ticketUrl"`
}

// BoletoPayload 볼레토 결제 응답 페이로드
type BoletoPayload struct {
	DocumentURL string `json:"documentUrl"`
	Barcode     string `json:"barcode"`
}

// CheckoutResult 체크아웃 결과
type CheckoutResult struct {
	OrderID          string
	GatewayPaymentID string
	Status           domain.PaymentStatus
	ClientStatus     string
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	Total            decimal.Decimal
	Pix              *PixPayload
	Boleto           *BoletoPayload
}

// CheckoutService 결제 오케스트레이터 인터페이스
type CheckoutService interface {
	CreatePayment(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

type checkoutService struct {
	orders          repository.OrderRepository
	catalog         repository.CatalogRepository
	attempts        repository.AttemptRepository
	validator       *discount.Validator
	gateway         PaymentGateway
	gatewayTimeout  time.Duration
	notificationURL string
	logger          *zap.Logger
}

// NewCheckoutService 결제 오케스트레이터 생성
func NewCheckoutService(
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	attempts repository.AttemptRepository,
	validator *discount.Validator,
	gw PaymentGateway,
	gatewayTimeout time.Duration,
	notificationURL string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		orders:          orders,
		catalog:         catalog,
		attempts:        attempts,
		validator:       validator,
		gateway:         gw,
		gatewayTimeout:  gatewayTimeout,
		notificationURL: notificationURL,
		logger:          logger,
	}
}

// CreatePayment 체크아웃 제출 처리
//
// 검증 → 가격 계산 → 주문 영속화 → 게이트웨이 호출 → 즉시 응답 반영 순서.
// 주문 생성 이전의 실패는 호출자에게 검증 에러로 반환되고 기록을 남기지
// 않는다. 주문 생성 이후의 게이트웨이 실패는 주문을 pending으로 둔 채
// "processing" 결과를 반환한다. 게이트웨이 쪽에서 청구가 성공했을 수 있어
// 로컬 실패만으로 주문을 실패 처리하지 않는다.
func (s *checkoutService) CreatePayment(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	// 동일 주문 ID 재제출 처리. 게이트웨이 참조가 이미 있거나 최종 상태면
	// 저장된 주문을 그대로 반환한다. 참조 없는 pending은 게이트웨이 호출
	// 전에 실패한 시도이므로 청구를 다시 진행한다 (멱등성 키가 주문 ID라
	// 게이트웨이 쪽 중복 청구는 발생하지 않는다).
	var order *domain.Order
	if cmd.OrderID != "" {
		existing, err := s.orders.FindByID(ctx, cmd.OrderID)
		switch {
		case err == nil && (existing.GatewayPaymentID != "" || existing.Status.Terminal()):
			s.logger.Info("order already charged, returning stored state",
				zap.String("orderId", existing.ID),
				zap.String("status", string(existing.Status)))
			return resultFromOrder(existing), nil
		case err == nil:
			s.logger.Info("resuming pending order without gateway reference",
				zap.String("orderId", existing.ID))
			order = existing
		case errors.Code(err) != errors.ErrCodeOrderNotFound:
			return nil, err
		}
	}

	product, err := s.catalog.FindActiveProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	if order == nil {
		selectedBumps, err := s.resolveBumps(ctx, cmd.ProductID, cmd.SelectedBumpIDs)
		if err != nil {
			return nil, err
		}

		// 쿠폰 검증은 할인 적용 전 소계를 기준으로 한다
		baseQuote := pricing.Compute(product.Price, selectedBumps, nil)

		var applied *domain.AppliedDiscount
		if cmd.CouponCode != "" {
			applied, err = s.validator.Validate(ctx, cmd.CouponCode, baseQuote.Subtotal, time.Now())
			if err != nil {
				return nil, err
			}
		}

		quote := pricing.Compute(product.Price, selectedBumps, applied)

		orderID := cmd.OrderID
		if orderID == "" {
			orderID = uuid.New().String()
		}

		now := time.Now()
		order = &domain.Order{
			ID:             orderID,
			CustomerName:   cmd.Customer.Name,
			CustomerEmail:  cmd.Customer.Email,
			CustomerPhone:  cmd.Customer.Phone,
			Subtotal:       quote.Subtotal,
			DiscountAmount: quote.Discount,
			TotalAmount:    quote.Total,
			PaymentMethod:  cmd.PaymentMethod,
			Status:         domain.PaymentStatusPending,
			RedirectURL:    product.RedirectURL,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if applied != nil {
			order.CouponCode = applied.Code
		}

		order.Items = append(order.Items, domain.OrderItem{
			ProductID: product.ID,
			Quantity:  1,
			UnitPrice: product.Price.Round(2),
		})
		for _, bump := range selectedBumps {
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: bump.BumpProductID,
				Quantity:  1,
				UnitPrice: pricing.LinePrice(bump),
				IsBump:    true,
			})
		}

		if err := s.orders.CreateWithItems(ctx, order); err != nil {
			return nil, err
		}

		s.logger.Info("order created",
			zap.String("orderId", order.ID),
			zap.String("paymentMethod", string(order.PaymentMethod)),
			zap.String("total", order.TotalAmount.StringFixed(2)))
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	payment, err := s.gateway.CreatePayment(gatewayCtx, gateway.CreatePaymentInput{
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		Description: product.Name,
		Method:      cmd.PaymentMethod,
		Payer: gateway.Payer{
			Name:     cmd.Customer.Name,
			Email:    cmd.Customer.Email,
			Document: cmd.Customer.Document,
		},
		Card:            cmd.Card,
		Installments:    cmd.Installments,
		NotificationURL: s.notificationURL,
	})
	if err != nil {
		// 게이트웨이 쪽에서는 성공했을 수 있다. 주문은 pending으로 남기고
		// 이후 웹훅 또는 클라이언트 재시도로 해소한다.
		s.logger.Warn("gateway call failed after order write, returning processing",
			zap.String("orderId", order.ID),
			zap.Error(err))
		return resultFromOrder(order), nil
	}

	if err := s.orders.AttachGatewayPayment(ctx, order.ID, payment.PaymentID()); err != nil {
		s.logger.Error("failed to attach gateway payment",
			zap.String("orderId", order.ID),
			zap.Error(err))
	}
	order.GatewayPaymentID = payment.PaymentID()

	// 카드 결제는 동기 응답이 이미 최종 상태일 수 있다
	status := gateway.NormalizeStatus(payment.Status)
	if status != domain.PaymentStatusPending {
		if err := s.applySyncStatus(ctx, order, payment, status); err != nil {
			s.logger.Error("failed to apply synchronous gateway status",
				zap.String("orderId", order.ID),
				zap.Error(err))
		} else {
			order.Status = status
		}
	}

	s.appendAttempt(ctx, order.ID, payment, domain.AttemptEventPaymentCreated)

	result := resultFromOrder(order)
	attachMethodPayload(result, payment)
	return result, nil
}

// GetOrder 주문 조회
func (s *checkoutService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

// applySyncStatus 동기 게이트웨이 응답의 최종 상태를 주문에 반영
func (s *checkoutService) applySyncStatus(ctx context.Context, order *domain.Order, payment *gateway.Payment, status domain.PaymentStatus) error {
	outbox, err := statusChangedOutbox(order.ID, payment.PaymentID(), order.Status, status)
	if err != nil {
		return err
	}

	result, err := s.orders.TransitionStatus(ctx, order.ID, status, outbox)
	if err != nil {
		return err
	}
	if !result.Applied {
		s.logger.Warn("synchronous status not applied",
			zap.String("orderId", order.ID),
			zap.String("current", string(result.Previous)),
			zap.String("next", string(status)))
	}
	return nil
}

func (s *checkoutService) appendAttempt(ctx context.Context, orderID string, payment *gateway.Payment, eventType string) {
	raw, err := json.Marshal(payment)
	if err != nil {
		raw = []byte("{}")
	}

	attempt := &domain.PaymentAttempt{
		OrderID:          orderID,
		GatewayPaymentID: payment.PaymentID(),
		EventType:        eventType,
		Status:           payment.Status,
		RawData:          raw,
		CreatedAt:        time.Now(),
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		s.logger.Error("failed to append payment attempt",
			zap.String("orderId", orderID),
			zap.Error(err))
	}
}

// resolveBumps 선택된 범프 ID를 활성 제안으로 해석
func (s *checkoutService) resolveBumps(ctx context.Context, productID string, selectedIDs []string) ([]domain.OrderBump, error) {
	if len(selectedIDs) == 0 {
		return nil, nil
	}

	active, err := s.catalog.FindActiveBumps(ctx, productID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.OrderBump, len(active))
	for _, bump := range active {
		byID[bump.ID] = bump
	}

	selected := make([]domain.OrderBump, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		bump, ok := byID[id]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidCheckout, "selected bump not available: "+id)
		}
		selected = append(selected, bump)
	}

	return selected, nil
}

func validateCommand(cmd CheckoutCommand) error {
	if !cmd.PaymentMethod.Valid() {
		return errors.New(errors.ErrCodeInvalidCheckout, "unsupported payment method")
	}
	if cmd.ProductID == "" {
		return errors.New(errors.ErrCodeInvalidCheckout, "product id is required")
	}
	if cmd.Customer.Name == "" || cmd.Customer.Email == "" {
		return errors.New(errors.ErrCodeInvalidCheckout, "customer name and email are required")
	}
	if cmd.PaymentMethod.RequiresDocument() && cmd.Customer.Document == "" {
		return errors.New(errors.ErrCodeInvalidCheckout, "tax document is required for this payment method")
	}

	if cmd.PaymentMethod == domain.PaymentMethodCreditCard {
		if cmd.Card == nil || cmd.Card.Number == "" || cmd.Card.CVV == "" ||
			cmd.Card.ExpiryMonth == "" || cmd.Card.ExpiryYear == "" {
			return errors.New(errors.ErrCodeInvalidCheckout, "card data is required for credit card payment")
		}
		// 와이어 요청 조립 단계까지 가기 전에 걸러야 주문이 먼저 영속화되는
		// 일이 없다
		if !isDigits(strings.ReplaceAll(cmd.Card.Number, " ", "")) {
			return errors.New(errors.ErrCodeInvalidCheckout, "card number must be numeric")
		}
		month, err := strconv.Atoi(cmd.Card.ExpiryMonth)
		if err != nil || month < 1 || month > 12 {
			return errors.New(errors.ErrCodeInvalidCheckout, "invalid card expiry month")
		}
		if _, err := strconv.Atoi(cmd.Card.ExpiryYear); err != nil {
			return errors.New(errors.ErrCodeInvalidCheckout, "invalid card expiry year")
		}
		if cmd.Installments < 1 || cmd.Installments > 12 {
			return errors.New(errors.ErrCodeInvalidCheckout, "installments must be between 1 and 12")
		}
	}

	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func resultFromOrder(order *domain.Order) *CheckoutResult {
	return &CheckoutResult{
		OrderID:          order.ID,
		GatewayPaymentID: order.GatewayPaymentID,
		Status:           order.Status,
		ClientStatus:     order.Status.ClientStatus(),
		Subtotal:         order.Subtotal,
		Discount:         order.DiscountAmount,
		Total:            order.TotalAmount,
	}
}

func attachMethodPayload(result *CheckoutResult, payment *gateway.Payment) {
	if payment.PointOfInteraction != nil && payment.PointOfInteraction.TransactionData != nil {
		data := payment.PointOfInteraction.TransactionData
		result.Pix = &PixPayload{
			QRCode:       data.QRCode,
			QRCodeBase64: data.QRCodeBase64,
			TicketURL:    data.TicketURL,
		}
	}
	if payment.TransactionDetails != nil || payment.Barcode != nil {
		boleto := &BoletoPayload{}
		if payment.TransactionDetails != nil {
			boleto.DocumentURL = payment.TransactionDetails.ExternalResourceURL
		}
		if payment.Barcode != nil {
			boleto.Barcode = payment.Barcode.Content
		}
		if boleto.DocumentURL != "" || boleto.Barcode != "" {
			result.Boleto = boleto
		}
	}
}

// statusChangedOutbox 상태 변경 이벤트의 outbox 행 구성
func statusChangedOutbox(orderID, gatewayPaymentID string, previous, next domain.PaymentStatus) (*repository.OutboxEvent, error) {
	event := events.OrderStatusChangedEvent{
		BaseEvent: events.BaseEvent{
			EventID:       uuid.New().String(),
			EventType:     events.EventOrderStatusChanged,
			SchemaVersion: 1,
			OccurredAt:    time.Now(),
			CorrelationID: orderID,
		},
		OrderID:          orderID,
		Status:           string(next),
		PreviousStatus:   string(previous),
		GatewayPaymentID: gatewayPaymentID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerializationError, "failed to marshal status event", err)
	}

	return &repository.OutboxEvent{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     string(events.EventOrderStatusChanged),
		Payload:       payload,
		Status:        "PENDING",
		CreatedAt:     time.Now(),
	}, nil
}
