package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
	"github.com/kyungseok/storefront-checkout-go/internal/gateway"
	"github.com/kyungseok/storefront-checkout-go/internal/service"
)

// HTTPHandler 체크아웃 HTTP 핸들러
type HTTPHandler struct {
	checkout service.CheckoutService
	logger   *zap.Logger
}

// NewHTTPHandler 체크아웃 HTTP 핸들러 생성
func NewHTTPHandler(checkout service.CheckoutService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		checkout: checkout,
		logger:   logger,
	}
}

// CheckoutRequest 체크아웃 제출 요청
type CheckoutRequest struct {
	OrderID       string         `json:"orderId,omitempty"`
	ProductID     string         `json:"productId"`
	CustomerInfo  CustomerInfo   `json:"customerInfo"`
	SelectedBumps []string       `json:"selectedBumps,omitempty"`
	CouponCode    string         `json:"couponCode,omitempty"`
	PaymentMethod string         `json:"paymentMethod"`
	CardData      *CardData      `json:"cardData,omitempty"`
	Installments  int            `json:"installments,omitempty"`
}

// CustomerInfo 구매자 정보
type CustomerInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

// CardData 카드 입력
type CardData struct {
	Number      string `json:"number"`
	Name        string `json:"name"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

// CheckoutResponse 체크아웃 결과 응답
type CheckoutResponse struct {
	OrderID   string                 `json:"orderId"`
	PaymentID string                 `json:"paymentId,omitempty"`
	Status    string                 `json:"status"`
	Subtotal  string                 `json:"subtotal"`
	Discount  string                 `json:"discount"`
	Total     string                 `json:"total"`
	Pix       *service.PixPayload    `json:"pix,omitempty"`
	Boleto    *service.BoletoPayload `json:"boleto,omitempty"`
}

// OrderStatusResponse 주문 상태 응답 (재접속한 클라이언트의 상태 재조회용)
type OrderStatusResponse struct {
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// ErrorResponse 에러 응답
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CreatePayment 체크아웃 제출 API
func (h *HTTPHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	cmd := service.CheckoutCommand{
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		Customer: service.CustomerInfo{
			Name:     req.CustomerInfo.Name,
			Email:    req.CustomerInfo.Email,
			Phone:    req.CustomerInfo.Phone,
			Document: req.CustomerInfo.Document,
		},
		SelectedBumpIDs: req.SelectedBumps,
		CouponCode:      req.CouponCode,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		Installments:    req.Installments,
	}
	if req.CardData != nil {
		cmd.Card = &gateway.CardData{
			Number:      req.CardData.Number,
			HolderName:  req.CardData.Name,
			ExpiryMonth: req.CardData.ExpiryMonth,
			ExpiryYear:  req.CardData.ExpiryYear,
			CVV:         req.CardData.CVV,
		}
	}

	result, err := h.checkout.CreatePayment(r.Context(), cmd)
	if err != nil {
		if errors.IsValidation(err) {
			h.respondError(w, http.StatusUnprocessableEntity, err.Error(), string(errors.Code(err)))
			return
		}
		h.logger.Error("failed to create payment", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to process payment", string(errors.Code(err)))
		return
	}

	h.respondJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:   result.OrderID,
		PaymentID: result.GatewayPaymentID,
		Status:    result.ClientStatus,
		Subtotal:  result.Subtotal.StringFixed(2),
		Discount:  result.Discount.StringFixed(2),
		Total:     result.Total.StringFixed(2),
		Pix:       result.Pix,
		Boleto:    result.Boleto,
	})
}

// GetOrderStatus 주문 상태 조회 API
func (h *HTTPHandler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	order, err := h.checkout.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Code(err) == errors.ErrCodeOrderNotFound {
			h.respondError(w, http.StatusNotFound, "order not found", "")
			return
		}
		h.logger.Error("failed to get order", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to get order", "")
		return
	}

	resp := OrderStatusResponse{
		OrderID: order.ID,
		Status:  order.Status.ClientStatus(),
	}
	// 승인된 주문만 구매물 주소를 노출
	if order.Status == domain.PaymentStatusApproved {
		resp.RedirectURL = order.RedirectURL
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// HealthCheck 헬스 체크 API
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message string, code string) {
	h.respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
