package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/kyungseok/storefront-checkout-go/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Quote 가격 계산 결과
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Compute 주문 금액 계산 (순수 함수, I/O 없음)
//
// subtotal = 상품 정가 + Σ(범프 정가 × (1 − 범프 할인율/100))
// discount = 쿠폰 종류에 따라 subtotal 비율 또는 고정 금액 (subtotal 초과 불가)
// total    = subtotal − discount
//
// 모든 금액은 소수점 둘째 자리, round-half-up.
func Compute(basePrice decimal.Decimal, bumps []domain.OrderBump, applied *domain.AppliedDiscount) Quote {
	subtotal := basePrice.Round(2)

	for _, bump := range bumps {
		subtotal = subtotal.Add(LinePrice(bump))
	}

	discount := decimal.Zero
	if applied != nil {
		switch applied.Type {
		case domain.DiscountTypePercentage:
			discount = subtotal.Mul(applied.Value).Div(hundred).Round(2)
		case domain.DiscountTypeFixed:
			discount = applied.Value.Round(2)
		}
		// 할인이 소계를 넘으면 소계로 제한 (총액 음수 방지)
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount).Round(2),
	}
}

// LinePrice 범프 항목의 실구매가 (자체 할인율 반영, 가격 스냅샷에도 사용)
//
// 할인율이 100을 넘는 데이터가 들어와도 음수 가격은 만들지 않는다.
func LinePrice(bump domain.OrderBump) decimal.Decimal {
	factor := hundred.Sub(bump.DiscountPercentage).Div(hundred)
	price := bump.BumpPrice.Mul(factor).Round(2)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}
