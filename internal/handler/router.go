package handler

import (
	"github.com/gorilla/mux"
)

// NewRouter 서비스 라우터 구성
func NewRouter(h *HTTPHandler, wh *WebhookHandler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/checkout", h.CreatePayment).Methods("POST")
	router.HandleFunc("/api/orders/{id}", h.GetOrderStatus).Methods("GET")
	router.HandleFunc("/webhooks/payment", wh.HandleNotification).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	return router
}
