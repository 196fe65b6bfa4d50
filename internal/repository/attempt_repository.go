package repository

import (
	"context"
	"database/sql"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/internal/domain"
)

// AttemptRepository 결제 시도 로그 레포지토리 (append-only 감사 기록)
type AttemptRepository interface {
	Append(ctx context.Context, attempt *domain.PaymentAttempt) error
	FindByOrderID(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error)
}

type attemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository 결제 시도 로그 레포지토리 생성
func NewAttemptRepository(db *sql.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

// Append 결제 시도 기록 추가 (갱신/삭제 없음)
func (r *attemptRepository) Append(ctx context.Context, attempt *domain.PaymentAttempt) error {
	query := `
		INSERT INTO payment_logs (order_id, gateway_payment_id, event_type, payment_status, raw_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		attempt.OrderID,
		nullString(attempt.GatewayPaymentID),
		attempt.EventType,
		attempt.Status,
		attempt.RawData,
		attempt.CreatedAt,
	).Scan(&attempt.ID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to append payment attempt", err)
	}

	return nil
}

// FindByOrderID 주문별 결제 시도 기록 조회
func (r *attemptRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error) {
	query := `
		SELECT id, order_id, COALESCE(gateway_payment_id, ''), event_type, payment_status, raw_data, created_at
		FROM payment_logs
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find payment attempts", err)
	}
	defer rows.Close()

	var attempts []domain.PaymentAttempt
	for rows.Next() {
		var attempt domain.PaymentAttempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.OrderID,
			&attempt.GatewayPaymentID,
			&attempt.EventType,
			&attempt.Status,
			&attempt.RawData,
			&attempt.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan payment attempt", err)
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}
