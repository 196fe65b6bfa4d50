package events

import "time"

// EventType 이벤트 타입 정의
type EventType string

const (
	// Order Events
	EventOrderStatusChanged EventType = "order.status_changed.v1"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	SchemaVersion int       `json:"schemaVersion"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"`
}

// OrderStatusChangedEvent 주문 상태 변경 이벤트 (체크아웃 화면 구독용)
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID          string `json:"orderId"`
	Status           string `json:"status"`
	PreviousStatus   string `json:"previousStatus"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`
}
