package repository

import (
	"context"
	"database/sql"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
)

// CatalogRepository 카탈로그 조회 인터페이스 (주문 코어는 읽기 전용)
type CatalogRepository interface {
	FindActiveProduct(ctx context.Context, id string) (*domain.Product, error)
	// FindActiveBumps 상품에 연결된 활성 범프 제안 조회 (대상 상품 정가 포함)
	FindActiveBumps(ctx context.Context, productID string) ([]domain.OrderBump, error)
	FindCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	// SettingValue 운영 설정 값 조회 (없으면 빈 문자열)
	SettingValue(ctx context.Context, key string) (string, error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository 카탈로그 레포지토리 생성
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// FindActiveProduct 활성 상품 조회
func (r *catalogRepository) FindActiveProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), price, COALESCE(redirect_url, ''), is_active, created_at
		FROM products
		WHERE id = $1 AND is_active = TRUE
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.RedirectURL,
		&product.IsActive,
		&product.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeProductNotFound, "product not found or inactive: "+id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find product", err)
	}

	return product, nil
}

// FindActiveBumps 활성 범프 제안 조회
func (r *catalogRepository) FindActiveBumps(ctx context.Context, productID string) ([]domain.OrderBump, error) {
	query := `
		SELECT b.id, b.product_id, b.bump_product_id, b.title, COALESCE(b.description, ''),
			b.discount_percentage, p.price, b.is_active
		FROM order_bumps b
		JOIN products p ON p.id = b.bump_product_id
		WHERE b.product_id = $1 AND b.is_active = TRUE AND p.is_active = TRUE
		ORDER BY b.id
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find order bumps", err)
	}
	defer rows.Close()

	var bumps []domain.OrderBump
	for rows.Next() {
		var bump domain.OrderBump
		if err := rows.Scan(
			&bump.ID,
			&bump.ProductID,
			&bump.BumpProductID,
			&bump.Title,
			&bump.Description,
			&bump.DiscountPercentage,
			&bump.BumpPrice,
			&bump.IsActive,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order bump", err)
		}
		bumps = append(bumps, bump)
	}

	return bumps, rows.Err()
}

// FindCouponByCode 쿠폰 코드로 조회 (코드는 대문자로 저장됨)
func (r *catalogRepository) FindCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT code, discount_type, discount_value, COALESCE(min_order_amount, 0), expires_at, is_active
		FROM coupons
		WHERE UPPER(code) = $1
	`

	coupon := &domain.Coupon{}
	var expiresAt sql.NullTime
	var discountType string

	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&coupon.Code,
		&discountType,
		&coupon.DiscountValue,
		&coupon.MinOrderAmount,
		&expiresAt,
		&coupon.IsActive,
	)

	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeCouponInvalid, "coupon not found: "+code)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find coupon", err)
	}

	coupon.DiscountType = domain.DiscountType(discountType)
	if expiresAt.Valid {
		coupon.ExpiresAt = &expiresAt.Time
	}

	return coupon, nil
}

// SettingValue 운영 설정 조회
func (r *catalogRepository) SettingValue(ctx context.Context, key string) (string, error) {
	query := `SELECT setting_value FROM system_settings WHERE setting_key = $1`

	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDatabaseError, "failed to read setting", err)
	}

	return value, nil
}
