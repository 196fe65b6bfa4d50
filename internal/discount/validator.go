package discount

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
)

// CouponSource 쿠폰 조회 인터페이스
type CouponSource interface {
	FindCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

// Validator 쿠폰 검증기 (읽기 전용, 사용 횟수 갱신 없음)
type Validator struct {
	coupons CouponSource
}

// NewValidator 쿠폰 검증기 생성
func NewValidator(coupons CouponSource) *Validator {
	return &Validator{coupons: coupons}
}

// Validate 쿠폰 코드 검증
//
// 거절 사유는 다음 순서로 판정한다: 미존재/비활성 → 만료 → 최소 주문 금액 미달.
// 부수 효과가 없어 동일 입력으로 몇 번을 호출해도 같은 결정을 반환한다.
func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*domain.AppliedDiscount, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	coupon, err := v.coupons.FindCouponByCode(ctx, normalized)
	if err != nil {
		// 저장소 장애를 쿠폰 거절로 위장하면 호출자가 재시도 판단을 못 한다
		if errors.Code(err) != errors.ErrCodeCouponInvalid {
			return nil, err
		}
		return nil, errors.New(errors.ErrCodeCouponInvalid, "coupon not found or inactive")
	}
	if coupon == nil || !coupon.IsActive {
		return nil, errors.New(errors.ErrCodeCouponInvalid, "coupon not found or inactive")
	}

	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(now) {
		return nil, errors.New(errors.ErrCodeCouponExpired, "coupon expired")
	}

	if coupon.MinOrderAmount.GreaterThan(subtotal) {
		return nil, errors.New(errors.ErrCodeCouponBelowMinimum, "order subtotal below coupon minimum")
	}

	return &domain.AppliedDiscount{
		Code:  coupon.Code,
		Type:  coupon.DiscountType,
		Value: coupon.DiscountValue,
	}, nil
}
