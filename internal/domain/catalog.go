package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 판매 상품
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	RedirectURL string
	IsActive    bool
	CreatedAt   time.Time
}

// DiscountType 할인 종류
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Coupon 할인 쿠폰 (주문 코어는 읽기 전용으로 사용)
type Coupon struct {
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	ExpiresAt      *time.Time
	IsActive       bool
}

// AppliedDiscount 검증을 통과한 할인 결정 (가격 엔진 입력)
type AppliedDiscount struct {
	Code  string
	Type  DiscountType
	Value decimal.Decimal
}

// OrderBump 주 상품에 붙는 추가 구매 제안 (자체 할인율 보유)
type OrderBump struct {
	ID                 string
	ProductID          string
	BumpProductID      string
	Title              string
	Description        string
	DiscountPercentage decimal.Decimal
	// BumpPrice 범프 대상 상품의 정가 (조회 시 products 조인으로 채워짐)
	BumpPrice decimal.Decimal
	IsActive  bool
}
