package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"daan-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EntryRepository stores pledge entries of both kinds (boli and
// previous-outstanding). Payments live in a JSONB column on the entry
// row, so a payment has no identity outside its entry and an entry
// update replaces the whole list atomically.
type EntryRepository struct {
	DB *pgxpool.Pool
}

func NewEntryRepository(db *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{DB: db}
}

const entryColumns = `
	id, kind, user_id, user_name, user_phone, item, amount, quantity,
	total_amount, received_amount, pending_amount, status, payments,
	entry_status, created_by_id, COALESCE(created_by_name, ''), created_at, updated_at
`

func scanEntry(row interface{ Scan(...interface{}) error }) (*models.Entry, error) {
	var e models.Entry
	var payments []byte
	err := row.Scan(&e.ID, &e.Kind, &e.UserID, &e.UserName, &e.UserPhone, &e.Item,
		&e.Amount, &e.Quantity, &e.TotalAmount, &e.ReceivedAmount, &e.PendingAmount,
		&e.Status, &payments, &e.EntryStatus, &e.CreatedByID, &e.CreatedByName,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(payments) > 0 {
		if err := json.Unmarshal(payments, &e.Payments); err != nil {
			return nil, fmt.Errorf("failed to decode payments for entry %d: %w", e.ID, err)
		}
	}
	return &e, nil
}

func (r *EntryRepository) Create(ctx context.Context, e *models.Entry) error {
	payments, err := json.Marshal(e.Payments)
	if err != nil {
		return fmt.Errorf("failed to encode payments: %w", err)
	}
	query := `
		INSERT INTO pledge_entries (
			kind, user_id, user_name, user_phone, item, amount, quantity,
			total_amount, received_amount, pending_amount, status, payments,
			entry_status, created_by_id, created_by_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err = r.DB.QueryRow(ctx, query,
		e.Kind, e.UserID, e.UserName, e.UserPhone, e.Item, e.Amount, e.Quantity,
		e.TotalAmount, e.ReceivedAmount, e.PendingAmount, e.Status, payments,
		e.EntryStatus, e.CreatedByID, e.CreatedByName,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

func (r *EntryRepository) Get(ctx context.Context, id int) (*models.Entry, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM pledge_entries WHERE id=$1`, id)
	return scanEntry(row)
}

// Update persists the payments list and every derived field in one
// statement. Callers must have recomputed the derived fields from the
// payments list before calling.
func (r *EntryRepository) Update(ctx context.Context, e *models.Entry) error {
	payments, err := json.Marshal(e.Payments)
	if err != nil {
		return fmt.Errorf("failed to encode payments: %w", err)
	}
	query := `
		UPDATE pledge_entries
		SET payments=$1, received_amount=$2, pending_amount=$3, status=$4,
		    entry_status=$5, item=$6, updated_at=NOW()
		WHERE id=$7
	`
	tag, err := r.DB.Exec(ctx, query,
		payments, e.ReceivedAmount, e.PendingAmount, e.Status, e.EntryStatus, e.Item, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update entry %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry %d not found", e.ID)
	}
	return nil
}

func (r *EntryRepository) List(ctx context.Context, kind string) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pledge_entries WHERE entry_status='active'`
	args := []interface{}{}
	if kind != "" {
		query += " AND kind=$1"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC"

	return r.queryEntries(ctx, query, args...)
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID int) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM pledge_entries
		WHERE user_id=$1 AND entry_status='active'
		ORDER BY created_at DESC`
	return r.queryEntries(ctx, query, userID)
}

func (r *EntryRepository) ListDeleted(ctx context.Context) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM pledge_entries
		WHERE entry_status='deleted'
		ORDER BY updated_at DESC`
	return r.queryEntries(ctx, query)
}

func (r *EntryRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*models.Entry, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary aggregates active entries per kind for the dashboard.
func (r *EntryRepository) Summary(ctx context.Context, kind string) (*models.EntrySummary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(received_amount), 0),
		       COALESCE(SUM(pending_amount), 0)
		FROM pledge_entries
		WHERE entry_status='active' AND kind=$1
	`
	s := &models.EntrySummary{Kind: kind}
	err := r.DB.QueryRow(ctx, query, kind).Scan(
		&s.EntryCount, &s.TotalAmount, &s.TotalReceived, &s.TotalPending)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s entries: %w", kind, err)
	}
	return s, nil
}
