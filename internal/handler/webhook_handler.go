package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/gateway"
	"github.com/kyungseok/storefront-checkout-go/internal/service"
)

// WebhookHandler 게이트웨이 웹훅 핸들러
type WebhookHandler struct {
	reconciler service.ReconcilerService
	logger     *zap.Logger
}

// NewWebhookHandler 웹훅 핸들러 생성
func NewWebhookHandler(reconciler service.ReconcilerService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// HandleNotification 웹훅 수신 API
//
// 게이트웨이는 at-least-once로 전달하고 비2xx 응답을 재시도한다. 내부
// 오류로 승인 응답을 미루면 영구적으로 잘못된 페이로드에 대해 무한
// 재전달이 발생하므로, 알 수 없는 주문(404)을 제외한 모든 내부 오류는
// 기록만 하고 200으로 응답한다.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	var event gateway.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.logger.Warn("unparseable webhook payload", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	if err := h.reconciler.HandleNotification(r.Context(), event); err != nil {
		if errors.Code(err) == errors.ErrCodeOrderNotFound {
			h.logger.Warn("webhook for unknown order", zap.Error(err))
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("order not found"))
			return
		}
		h.logger.Error("webhook processing failed", zap.Error(err))
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
