package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
)

// TransitionResult 상태 전이 시도 결과
type TransitionResult struct {
	Applied  bool
	Previous domain.PaymentStatus
}

// OrderRepository 주문 레포지토리 인터페이스
type OrderRepository interface {
	// CreateWithItems 주문과 주문 항목을 단일 트랜잭션으로 생성 (all-or-nothing)
	CreateWithItems(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// AttachGatewayPayment 게이트웨이 결제 참조를 1회 기록 (pending 상태에서만)
	AttachGatewayPayment(ctx context.Context, orderID, gatewayPaymentID string) error
	// TransitionStatus 상태 머신 규칙을 따르는 조건부 상태 갱신.
	// 전이가 적용되면 outbox 이벤트를 같은 트랜잭션으로 기록한다.
	TransitionStatus(ctx context.Context, orderID string, next domain.PaymentStatus, outbox *OutboxEvent) (TransitionResult, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository 주문 레포지토리 생성
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateWithItems 주문 + 항목 생성
func (r *orderRepository) CreateWithItems(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (id, customer_name, customer_email, customer_phone,
			subtotal, discount_amount, total_amount, coupon_code,
			payment_method, payment_status, redirect_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.ExecContext(ctx, orderQuery,
		order.ID,
		order.CustomerName,
		order.CustomerEmail,
		nullString(order.CustomerPhone),
		order.Subtotal,
		order.DiscountAmount,
		order.TotalAmount,
		nullString(order.CouponCode),
		string(order.PaymentMethod),
		string(order.Status),
		order.RedirectURL,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.Wrap(errors.ErrCodeInvalidCheckout, "duplicate order id", err)
		}
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to create order", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, is_bump)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.QueryRowContext(ctx, itemQuery,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
			item.IsBump,
		).Scan(&item.ID)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDatabaseError, "failed to create order item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	return nil
}

// FindByID ID로 주문 조회 (항목 포함)
func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, customer_name, customer_email, customer_phone,
			subtotal, discount_amount, total_amount, coupon_code,
			payment_method, payment_status, gateway_payment_id, redirect_url,
			created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	order := &domain.Order{}
	var phone, couponCode, gatewayPaymentID sql.NullString
	var method, status string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.CustomerName,
		&order.CustomerEmail,
		&phone,
		&order.Subtotal,
		&order.DiscountAmount,
		&order.TotalAmount,
		&couponCode,
		&method,
		&status,
		&gatewayPaymentID,
		&order.RedirectURL,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found: "+id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find order", err)
	}

	order.CustomerPhone = phone.String
	order.CouponCode = couponCode.String
	order.GatewayPaymentID = gatewayPaymentID.String
	order.PaymentMethod = domain.PaymentMethod(method)
	order.Status = domain.PaymentStatus(status)

	items, err := r.findItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) findItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, is_bump
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find order items", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.IsBump); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order item", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// AttachGatewayPayment 게이트웨이 참조 기록
func (r *orderRepository) AttachGatewayPayment(ctx context.Context, orderID, gatewayPaymentID string) error {
	query := `
		UPDATE orders
		SET gateway_payment_id = $1, updated_at = NOW()
		WHERE id = $2 AND gateway_payment_id IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, gatewayPaymentID, orderID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to attach gateway payment", err)
	}

	return nil
}

// TransitionStatus 조건부 상태 전이
//
// 현재 상태 행을 잠근 뒤 상태 머신이 허용하는 전이만 적용한다. 최종 상태에
// 도달한 주문은 어떤 쓰기도 받아들이지 않으므로 중복/역순 웹훅 전달에도
// 안전하다. 주문 행이 직렬화 지점이다.
func (r *orderRepository) TransitionStatus(ctx context.Context, orderID string, next domain.PaymentStatus, outbox *OutboxEvent) (TransitionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return TransitionResult{}, errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT payment_status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
	if err == sql.ErrNoRows {
		return TransitionResult{}, errors.New(errors.ErrCodeOrderNotFound, "order not found: "+orderID)
	}
	if err != nil {
		return TransitionResult{}, errors.Wrap(errors.ErrCodeDatabaseError, "failed to lock order", err)
	}

	previous := domain.PaymentStatus(current)
	probe := domain.Order{Status: previous}
	if !probe.CanTransitionTo(next) {
		return TransitionResult{Applied: false, Previous: previous}, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2`,
		string(next), orderID)
	if err != nil {
		return TransitionResult{}, errors.Wrap(errors.ErrCodeDatabaseError, "failed to update order status", err)
	}

	if outbox != nil {
		if err := insertOutboxTx(ctx, tx, outbox); err != nil {
			return TransitionResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return TransitionResult{}, errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	return TransitionResult{Applied: true, Previous: previous}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
