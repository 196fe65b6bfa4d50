package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/storefront-checkout-go/internal/domain"
)

func bump(price float64, discountPct int64) domain.OrderBump {
	return domain.OrderBump{
		BumpPrice:          decimal.NewFromFloat(price),
		DiscountPercentage: decimal.NewFromInt(discountPct),
	}
}

func TestComputeScenario(t *testing.T) {
	// 정가 100.00 + 범프 50.00 (20% 할인) + 쿠폰 10%
	applied := &domain.AppliedDiscount{
		Code:  "SAVE10",
		Type:  domain.DiscountTypePercentage,
		Value: decimal.NewFromInt(10),
	}

	quote := Compute(decimal.NewFromFloat(100.00), []domain.OrderBump{bump(50.00, 20)}, applied)

	assert.Equal(t, "140.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "14.00", quote.Discount.StringFixed(2))
	assert.Equal(t, "126.00", quote.Total.StringFixed(2))
}

func TestComputeNoDiscount(t *testing.T) {
	quote := Compute(decimal.NewFromFloat(59.90), nil, nil)

	assert.Equal(t, "59.90", quote.Subtotal.StringFixed(2))
	assert.True(t, quote.Discount.IsZero())
	assert.Equal(t, "59.90", quote.Total.StringFixed(2))
}

func TestComputeFixedDiscountCappedAtSubtotal(t *testing.T) {
	applied := &domain.AppliedDiscount{
		Type:  domain.DiscountTypeFixed,
		Value: decimal.NewFromInt(500),
	}

	quote := Compute(decimal.NewFromFloat(100.00), nil, applied)

	// 고정 할인이 소계를 넘으면 총액은 0, 음수 불가
	assert.Equal(t, "100.00", quote.Discount.StringFixed(2))
	assert.True(t, quote.Total.IsZero())
}

func TestComputeRounding(t *testing.T) {
	// 33.33의 10%는 3.333 → round-half-up으로 3.33
	applied := &domain.AppliedDiscount{
		Type:  domain.DiscountTypePercentage,
		Value: decimal.NewFromInt(10),
	}

	quote := Compute(decimal.NewFromFloat(33.33), nil, applied)
	assert.Equal(t, "3.33", quote.Discount.StringFixed(2))
	assert.Equal(t, "30.00", quote.Total.StringFixed(2))

	// 0.125 경계: 12.50의 1% = 0.125 → 0.13
	half := Compute(decimal.NewFromFloat(12.50), nil, &domain.AppliedDiscount{
		Type:  domain.DiscountTypePercentage,
		Value: decimal.NewFromInt(1),
	})
	assert.Equal(t, "0.13", half.Discount.StringFixed(2))
}

func TestLinePriceClampedAtZero(t *testing.T) {
	// 100%를 넘는 할인율이 저장돼 있어도 라인 가격은 음수가 되지 않는다
	assert.Equal(t, "0.00", LinePrice(bump(10.00, 150)).StringFixed(2))
	assert.Equal(t, "0.00", LinePrice(bump(10.00, 100)).StringFixed(2))

	quote := Compute(decimal.NewFromInt(100), []domain.OrderBump{bump(10.00, 150)}, nil)
	assert.Equal(t, "100.00", quote.Subtotal.StringFixed(2))
}

func TestComputeDeterministic(t *testing.T) {
	bumps := []domain.OrderBump{bump(19.90, 15), bump(7.77, 0)}
	applied := &domain.AppliedDiscount{
		Type:  domain.DiscountTypeFixed,
		Value: decimal.NewFromFloat(5.55),
	}

	first := Compute(decimal.NewFromFloat(49.90), bumps, applied)
	second := Compute(decimal.NewFromFloat(49.90), bumps, applied)

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
}

func TestComputeInvariants(t *testing.T) {
	// 임의의 선택 조합에서도 total = subtotal − discount, 0 ≤ discount ≤ subtotal
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		base := decimal.New(int64(rng.Intn(5_000_00)), -2)

		var bumps []domain.OrderBump
		for j := 0; j < rng.Intn(4); j++ {
			bumps = append(bumps, domain.OrderBump{
				BumpPrice:          decimal.New(int64(rng.Intn(2_000_00)), -2),
				DiscountPercentage: decimal.NewFromInt(int64(rng.Intn(101))),
			})
		}

		var applied *domain.AppliedDiscount
		switch rng.Intn(3) {
		case 1:
			applied = &domain.AppliedDiscount{
				Type:  domain.DiscountTypePercentage,
				Value: decimal.NewFromInt(int64(rng.Intn(101))),
			}
		case 2:
			applied = &domain.AppliedDiscount{
				Type:  domain.DiscountTypeFixed,
				Value: decimal.New(int64(rng.Intn(10_000_00)), -2),
			}
		}

		quote := Compute(base, bumps, applied)

		require.True(t, quote.Discount.GreaterThanOrEqual(decimal.Zero),
			"discount must be non-negative: %s", quote.Discount)
		require.True(t, quote.Discount.LessThanOrEqual(quote.Subtotal),
			"discount %s exceeds subtotal %s", quote.Discount, quote.Subtotal)
		require.True(t, quote.Total.Equal(quote.Subtotal.Sub(quote.Discount)),
			"total %s != subtotal %s - discount %s", quote.Total, quote.Subtotal, quote.Discount)
		require.True(t, quote.Total.GreaterThanOrEqual(decimal.Zero),
			"total must be non-negative: %s", quote.Total)
	}
}
