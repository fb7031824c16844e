package repositories

import (
	"context"
	"fmt"

	"daan-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository is insert-only. Audit rows are never updated or
// deleted; there is deliberately no Update or Delete method.
type TransactionRepository struct {
	DB *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (entry_id, entry_kind, user_id, type, amount, details, date, username, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	details := t.Details
	if len(details) == 0 {
		details = []byte("{}")
	}
	err := r.DB.QueryRow(ctx, query,
		t.EntryID, t.EntryKind, t.UserID, t.Type, t.Amount, details, t.Date, t.Username, t.ActorID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction row: %w", err)
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, f models.TransactionFilter) ([]*models.Transaction, error) {
	query := `
		SELECT id, entry_id, COALESCE(entry_kind, ''), user_id, type, amount,
		       details, date, COALESCE(username, ''), actor_id, created_at
		FROM transactions
		WHERE 1=1
	`
	args := []interface{}{}
	arg := 0
	if f.EntryID != nil {
		arg++
		query += fmt.Sprintf(" AND entry_id=$%d", arg)
		args = append(args, *f.EntryID)
	}
	if f.UserID != nil {
		arg++
		query += fmt.Sprintf(" AND user_id=$%d", arg)
		args = append(args, *f.UserID)
	}
	if f.Type != "" {
		arg++
		query += fmt.Sprintf(" AND type=$%d", arg)
		args = append(args, f.Type)
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	arg++
	query += fmt.Sprintf(" LIMIT $%d", arg)
	args = append(args, limit)
	if f.Offset > 0 {
		arg++
		query += fmt.Sprintf(" OFFSET $%d", arg)
		args = append(args, f.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.EntryID, &t.EntryKind, &t.UserID, &t.Type, &t.Amount,
			&t.Details, &t.Date, &t.Username, &t.ActorID, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}
