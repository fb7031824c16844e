package repositories

import (
	"context"
	"fmt"

	"daan-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type OnlineOrderRepository struct {
	DB *pgxpool.Pool
}

func NewOnlineOrderRepository(db *pgxpool.Pool) *OnlineOrderRepository {
	return &OnlineOrderRepository{DB: db}
}

func (r *OnlineOrderRepository) Create(ctx context.Context, o *models.OnlineOrder) error {
	query := `
		INSERT INTO online_orders (razorpay_order_id, entry_id, user_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.DB.QueryRow(ctx, query,
		o.RazorpayOrderID, o.EntryID, o.UserID, o.Amount, models.OrderStatusPending,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create online order: %w", err)
	}
	o.Status = models.OrderStatusPending
	return nil
}

func (r *OnlineOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.OnlineOrder, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, razorpay_order_id, entry_id, user_id, amount, status,
		        COALESCE(payment_id, ''), COALESCE(method, ''),
		        COALESCE(failure_reason, ''), COALESCE(receipt_no, ''),
		        created_at, updated_at
		 FROM online_orders WHERE razorpay_order_id=$1`, orderID)

	var o models.OnlineOrder
	err := row.Scan(&o.ID, &o.RazorpayOrderID, &o.EntryID, &o.UserID, &o.Amount, &o.Status,
		&o.PaymentID, &o.Method, &o.FailureReason, &o.ReceiptNo, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkSuccess flips a pending order to success. Returns false when the
// order was not pending, which makes webhook replays no-ops.
func (r *OnlineOrderRepository) MarkSuccess(ctx context.Context, orderID, paymentID, method, receiptNo string) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE online_orders
		 SET status=$2, payment_id=$3, method=$4, receipt_no=$5, updated_at=NOW()
		 WHERE razorpay_order_id=$1 AND status=$6`,
		orderID, models.OrderStatusSuccess, paymentID, method, receiptNo, models.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark order success: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OnlineOrderRepository) MarkFailed(ctx context.Context, orderID, reason string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE online_orders
		 SET status=$2, failure_reason=$3, updated_at=NOW()
		 WHERE razorpay_order_id=$1 AND status=$4`,
		orderID, models.OrderStatusFailed, reason, models.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}
	return nil
}

func (r *OnlineOrderRepository) ListByUser(ctx context.Context, userID int) ([]*models.OnlineOrder, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, razorpay_order_id, entry_id, user_id, amount, status,
		        COALESCE(payment_id, ''), COALESCE(method, ''),
		        COALESCE(failure_reason, ''), COALESCE(receipt_no, ''),
		        created_at, updated_at
		 FROM online_orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.OnlineOrder
	for rows.Next() {
		var o models.OnlineOrder
		err := rows.Scan(&o.ID, &o.RazorpayOrderID, &o.EntryID, &o.UserID, &o.Amount, &o.Status,
			&o.PaymentID, &o.Method, &o.FailureReason, &o.ReceiptNo, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}
