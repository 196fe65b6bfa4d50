package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/common/logger"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
	"github.com/kyungseok/storefront-checkout-go/internal/gateway"
)

func newReconcilerFixture() (*fakeOrderRepo, *fakeAttempts, *fakeGateway, *fakeIdemStore, ReconcilerService) {
	orders := newFakeOrderRepo()
	attempts := &fakeAttempts{}
	gw := newFakeGateway()
	idem := newFakeIdemStore()

	svc := NewReconcilerService(orders, attempts, gw, idem, logger.NewTestLogger())
	return orders, attempts, gw, idem, svc
}

func seedPendingOrder(orders *fakeOrderRepo, id string) {
	now := time.Now()
	orders.orders[id] = &domain.Order{
		ID:               id,
		CustomerName:     "Maria Silva",
		CustomerEmail:    "maria@example.com",
		Subtotal:         decimal.NewFromInt(140),
		DiscountAmount:   decimal.NewFromInt(14),
		TotalAmount:      decimal.NewFromInt(126),
		PaymentMethod:    domain.PaymentMethodPix,
		Status:           domain.PaymentStatusPending,
		GatewayPaymentID: "777",
		RedirectURL:      "https://content.example.com/course",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func paymentEvent(notificationID, paymentID string) gateway.WebhookEvent {
	event := gateway.WebhookEvent{
		ID:   json.Number(notificationID),
		Type: "payment",
	}
	event.Data.ID = json.Number(paymentID)
	return event
}

func TestReconcilerApprovesOrder(t *testing.T) {
	orders, attempts, gw, _, svc := newReconcilerFixture()
	seedPendingOrder(orders, "ord-1")
	gw.payments["777"] = &gateway.Payment{ID: 777, Status: "approved", ExternalReference: "ord-1"}

	err := svc.HandleNotification(context.Background(), paymentEvent("n1", "777"))
	require.NoError(t, err)

	order, err := orders.FindByID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusApproved, order.Status)

	// 승인 전이 1회 = 상태 변경 이벤트 1건
	require.Len(t, orders.outbox, 1)

	logged, _ := attempts.FindByOrderID(context.Background(), "ord-1")
	require.Len(t, logged, 1)
	assert.Equal(t, domain.AttemptEventWebhookReceived, logged[0].EventType)
}

func TestReconcilerAttachesMissingGatewayReference(t *testing.T) {
	orders, _, gw, _, svc := newReconcilerFixture()
	seedPendingOrder(orders, "ord-1")
	// 체크아웃이 게이트웨이 장애로 참조를 저장하지 못한 주문
	orders.orders["ord-1"].GatewayPaymentID = ""
	gw.payments["777"] = &gateway.Payment{ID: 777, Status: "approved", ExternalReference: "ord-1"}

	err := svc.HandleNotification(context.Background(), paymentEvent("n1", "777"))
	require.NoError(t, err)

	order, err := orders.FindByID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "777", order.GatewayPaymentID)
	assert.Equal(t, domain.PaymentStatusApproved, order.Status)
}

func TestReconcilerDuplicateTerminalDelivery(t *testing.T) {
	orders, attempts, gw, _, svc := newReconcilerFixture()
	seedPendingOrder(orders, "ord-1")
	gw.payments["777"] = &gateway.Payment{ID: 777, Status: "approved", ExternalReference: "ord-1"}

	require.NoError(t, svc.HandleNotification(context.Background(), paymentEvent("n1", "777")))
	// 재전달 (다른 알림 ID, 같은 최종 상태)
	require.NoError(t, svc.HandleNotification(context.Background(), paymentEvent("n2", "777")))

	order, _ := orders.FindByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusApproved, order.Status)

	// 상태는 그대로, 이벤트도 추가 발행 없음
	assert.Len(t, orders.outbox, 1)

	// 감사 기록은 알림마다 남는다
	logged, _ := attempts.FindByOrderID(context.Background(), "ord-1")
	assert.Len(t, logged, 2)
}

func TestReconcilerSameNotificationIDShortCircuits(t *testing.T) {
	orders, _, gw, _, svc := newReconcilerFixture()
	seedPendingOrder(orders, "ord-1")
	gw.payments["777"] = &gateway.Payment{ID: 777, Status: "approved", ExternalReference: "ord-1"}

	require.NoError(t, svc.HandleNotification(context.Background(), paymentEvent("n1", "777")))
	fetches := gw.getCalls

	// 동일 알림 ID 재전달은 게이트웨이 재조회 없이 무시
	require.NoError(t, svc.HandleNotification(context.Background(), paymentEvent("n1", "777")))
	assert.Equal(t, fetches, gw.getCalls)
}

func TestReconcilerRejectsConflictingTerminal(t *testing.T) {
	orders, _, gw, _, svc := newReconcilerFixture()
	seedPendingOrder(orders, "ord-1")
	orders.orders["ord-1"].Status = domain.PaymentStatusFailed
	gw.payments["777"] = &gateway.Payment{ID: 777, Status: "approved", ExternalReference: "ord-1"}

	err := svc.HandleNotification(context.Background(), paymentEvent("n1", "777"))
	require.NoError(t, err)

	// 충돌하는 최종 상태는 거부되고 원래 상태 유지
	order, _ := orders.FindByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusFailed, order.Status)
	assert.Empty(t, orders.outbox)
}

func TestReconcilerIgnoresNonPaymentEvents(t *testing.T) {
	_, _, gw, _, svc := newReconcilerFixture()

	event := gateway.WebhookEvent{ID: json.Number("1"), Type: "test"}
	require.NoError(t, svc.HandleNotification(context.Background(), event))

	assert.Zero(t, gw.getCalls)
}

func TestReconcilerUnknownOrder(t *testing.T) {
	_, _, gw, _, svc := newReconcilerFixture()
	gw.payments["777"] = &gateway.Payment{ID: 777, Status: "approved", ExternalReference: "missing"}

	err := svc.HandleNotification(context.Background(), paymentEvent("n1", "777"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeOrderNotFound, errors.Code(err))
}

func TestReconcilerRejectedPayment(t *testing.T) {
	orders, _, gw, _, svc := newReconcilerFixture()
	seedPendingOrder(orders, "ord-1")
	gw.payments["777"] = &gateway.Payment{ID: 777, Status: "rejected", ExternalReference: "ord-1"}

	require.NoError(t, svc.HandleNotification(context.Background(), paymentEvent("n1", "777")))

	order, _ := orders.FindByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusRejected, order.Status)
	assert.Equal(t, "failed", order.Status.ClientStatus())
}
