package repositories

import (
	"context"
	"fmt"

	"daan-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvanceRepository stores advance deposits and usages. Both tables are
// append-only; the balance is always re-derived from sums, never stored.
type AdvanceRepository struct {
	DB *pgxpool.Pool
}

func NewAdvanceRepository(db *pgxpool.Pool) *AdvanceRepository {
	return &AdvanceRepository{DB: db}
}

func (r *AdvanceRepository) CreateDeposit(ctx context.Context, a *models.AdvancePayment) error {
	query := `
		INSERT INTO advance_payments (user_id, user_name, date, amount, mode, receipt_no, created_by_id, created_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.DB.QueryRow(ctx, query,
		a.UserID, a.UserName, a.Date, a.Amount, a.Mode, a.ReceiptNo, a.CreatedByID, a.CreatedByName,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create advance deposit: %w", err)
	}
	return nil
}

func (r *AdvanceRepository) CreateUsage(ctx context.Context, u *models.AdvanceUsage) error {
	query := `
		INSERT INTO advance_usages (user_id, entry_id, amount, date, created_by_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.DB.QueryRow(ctx, query,
		u.UserID, u.EntryID, u.Amount, u.Date, u.CreatedByID,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create advance usage: %w", err)
	}
	return nil
}

func (r *AdvanceRepository) SumDeposits(ctx context.Context, userID int) (int64, error) {
	var total int64
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM advance_payments WHERE user_id=$1`,
		userID).Scan(&total)
	return total, err
}

func (r *AdvanceRepository) SumUsages(ctx context.Context, userID int) (int64, error) {
	var total int64
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM advance_usages WHERE user_id=$1`,
		userID).Scan(&total)
	return total, err
}

func (r *AdvanceRepository) ListDeposits(ctx context.Context, userID int) ([]*models.AdvancePayment, error) {
	query := `
		SELECT id, user_id, user_name, date, amount, mode, receipt_no,
		       created_by_id, COALESCE(created_by_name, ''), created_at
		FROM advance_payments
	`
	args := []interface{}{}
	if userID > 0 {
		query += " WHERE user_id=$1"
		args = append(args, userID)
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []*models.AdvancePayment
	for rows.Next() {
		var a models.AdvancePayment
		err := rows.Scan(&a.ID, &a.UserID, &a.UserName, &a.Date, &a.Amount, &a.Mode,
			&a.ReceiptNo, &a.CreatedByID, &a.CreatedByName, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, &a)
	}
	return deposits, rows.Err()
}

func (r *AdvanceRepository) ListUsages(ctx context.Context, userID int) ([]*models.AdvanceUsage, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, user_id, entry_id, amount, date, created_by_id, created_at
		 FROM advance_usages
		 WHERE user_id=$1
		 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usages []*models.AdvanceUsage
	for rows.Next() {
		var u models.AdvanceUsage
		err := rows.Scan(&u.ID, &u.UserID, &u.EntryID, &u.Amount, &u.Date, &u.CreatedByID, &u.CreatedAt)
		if err != nil {
			return nil, err
		}
		usages = append(usages, &u)
	}
	return usages, rows.Err()
}
