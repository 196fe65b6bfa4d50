package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/common/idempotency"
	"github.com/kyungseok/storefront-checkout-go/common/retry"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
	"github.com/kyungseok/storefront-checkout-go/internal/gateway"
	"github.com/kyungseok/storefront-checkout-go/internal/repository"
)

// notificationTTL 처리 완료 표시 보존 기간
const notificationTTL = 24 * time.Hour

// ReconcilerService 웹훅 정산 서비스 인터페이스
type ReconcilerService interface {
	HandleNotification(ctx context.Context, event gateway.WebhookEvent) error
}

type reconcilerService struct {
	orders      repository.OrderRepository
	attempts    repository.AttemptRepository
	gateway     PaymentGateway
	idemStore   idempotency.Store
	retryConfig retry.Config
	logger      *zap.Logger
}

// NewReconcilerService 웹훅 정산 서비스 생성
func NewReconcilerService(
	orders repository.OrderRepository,
	attempts repository.AttemptRepository,
	gw PaymentGateway,
	idemStore idempotency.Store,
	logger *zap.Logger,
) ReconcilerService {
	return &reconcilerService{
		orders:      orders,
		attempts:    attempts,
		gateway:     gw,
		idemStore:   idemStore,
		retryConfig: retry.DefaultConfig(),
		logger:      logger,
	}
}

// HandleNotification 게이트웨이 웹훅 알림 처리
//
// 이벤트 본문의 상태 필드는 신뢰하지 않는다. 위조되거나 오래된 본문에
// 대비해 결제 레코드를 게이트웨이에서 ID로 다시 조회한 뒤 그 결과만으로
// 주문 상태를 갱신한다. 갱신은 조건부 쓰기이므로 중복/역순 전달에도
// 최종 상태가 뒤집히지 않는다.
//
// 주문 생성 후 상품이 비활성화되어도 정산에는 영향이 없다. 주문 행 외의
// 어떤 것도 조회하거나 변경하지 않는다.
func (s *reconcilerService) HandleNotification(ctx context.Context, event gateway.WebhookEvent) error {
	if event.Type != "payment" || event.Data.ID.String() == "" {
		s.logger.Debug("ignoring non-payment notification", zap.String("type", event.Type))
		return nil
	}

	paymentID := event.Data.ID.String()
	dedupeKey := fmt.Sprintf("webhook:%s:%s", paymentID, event.ID.String())

	if processed, _ := s.idemStore.IsProcessed(ctx, dedupeKey); processed {
		s.logger.Info("notification already processed", zap.String("paymentId", paymentID))
		return nil
	}

	// 권위 있는 결제 레코드 재조회
	payment, err := retry.Do(ctx, s.retryConfig, s.logger, func() (*gateway.Payment, error) {
		return s.gateway.GetPayment(ctx, paymentID)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeGatewayError, "failed to fetch payment record", err)
	}

	if payment.ExternalReference == "" {
		s.logger.Warn("payment has no external reference, skipping",
			zap.String("paymentId", paymentID))
		return nil
	}

	order, err := s.orders.FindByID(ctx, payment.ExternalReference)
	if err != nil {
		s.logger.Warn("order not found for payment notification",
			zap.String("paymentId", paymentID),
			zap.String("externalReference", payment.ExternalReference))
		return err
	}

	// 생성 호출이 로컬 타임아웃으로 끝난 주문은 참조 없이 pending으로 남아
	// 있다. 웹훅이 그 참조를 보충하는 경로다.
	if order.GatewayPaymentID == "" {
		if err := s.orders.AttachGatewayPayment(ctx, order.ID, payment.PaymentID()); err != nil {
			s.logger.Error("failed to attach gateway payment from webhook",
				zap.String("orderId", order.ID),
				zap.Error(err))
		} else {
			order.GatewayPaymentID = payment.PaymentID()
		}
	}

	s.appendAttempt(ctx, order.ID, payment)

	next := gateway.NormalizeStatus(payment.Status)

	switch {
	case order.Status == next:
		// 동일 이벤트 재전달은 안전한 no-op
		s.logger.Info("order already in notified status",
			zap.String("orderId", order.ID),
			zap.String("status", string(next)))

	case order.Status.Terminal():
		// 최종 상태끼리의 충돌은 이상 징후로만 기록하고 원래 상태를 유지
		s.logger.Error("illegal terminal status transition rejected",
			zap.String("orderId", order.ID),
			zap.String("current", string(order.Status)),
			zap.String("notified", string(next)),
			zap.String("paymentId", paymentID))

	case next == domain.PaymentStatusPending:
		s.logger.Info("non-terminal notification, nothing to apply",
			zap.String("orderId", order.ID),
			zap.String("gatewayStatus", payment.Status))

	default:
		if err := s.applyTransition(ctx, order, payment, next); err != nil {
			return err
		}
	}

	if _, err := s.idemStore.Reserve(ctx, dedupeKey, notificationTTL); err != nil {
		s.logger.Warn("failed to mark notification processed", zap.Error(err))
	}

	return nil
}

func (s *reconcilerService) applyTransition(ctx context.Context, order *domain.Order, payment *gateway.Payment, next domain.PaymentStatus) error {
	outbox, err := statusChangedOutbox(order.ID, payment.PaymentID(), order.Status, next)
	if err != nil {
		return err
	}

	result, err := s.orders.TransitionStatus(ctx, order.ID, next, outbox)
	if err != nil {
		return err
	}

	if !result.Applied {
		// 동시 전달과의 경합에서 진 쪽. 이미 다른 쓰기가 확정했다.
		s.logger.Warn("status transition not applied",
			zap.String("orderId", order.ID),
			zap.String("current", string(result.Previous)),
			zap.String("next", string(next)))
		return nil
	}

	s.logger.Info("order status updated from webhook",
		zap.String("orderId", order.ID),
		zap.String("previous", string(result.Previous)),
		zap.String("status", string(next)))

	if next == domain.PaymentStatusApproved {
		// 승인 전이 지점이 구매물 접근 허용을 결정하는 유일한 곳
		s.logger.Info("payment approved, customer may access redirect target",
			zap.String("orderId", order.ID),
			zap.String("redirectUrl", order.RedirectURL))
	}

	return nil
}

func (s *reconcilerService) appendAttempt(ctx context.Context, orderID string, payment *gateway.Payment) {
	attempt := &domain.PaymentAttempt{
		OrderID:          orderID,
		GatewayPaymentID: payment.PaymentID(),
		EventType:        domain.AttemptEventWebhookReceived,
		Status:           payment.Status,
		CreatedAt:        time.Now(),
	}
	if raw, err := json.Marshal(payment); err == nil {
		attempt.RawData = raw
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		s.logger.Error("failed to append webhook attempt",
			zap.String("orderId", orderID),
			zap.Error(err))
	}
}
