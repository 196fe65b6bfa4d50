package gateway

import "github.com/kyungseok/storefront-checkout-go/internal/domain"

// NormalizeStatus 게이트웨이 상태 어휘를 내부 결제 상태로 정규화
//
// 모르는 상태 값은 pending으로 처리한다. 인식하지 못한 값을 승인이나 최종
// 실패로 간주하면 돈의 이동 여부를 잘못 확정하게 된다.
func NormalizeStatus(gatewayStatus string) domain.PaymentStatus {
	switch gatewayStatus {
	case "approved":
		return domain.PaymentStatusApproved
	case "pending", "in_process", "authorized":
		return domain.PaymentStatusPending
	case "rejected":
		return domain.PaymentStatusRejected
	case "cancelled":
		return domain.PaymentStatusCancelled
	default:
		return domain.PaymentStatusPending
	}
}
