package repositories

import (
	"context"
	"fmt"

	"daan-backend/internal/receipt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReceiptScanRepository re-derives the set of receipt numbers already
// issued in a year. It scans every payment record embedded in pledge
// entries of both kinds (deleted entries and deleted payments included,
// since numbers are never reused) plus every advance deposit receipt.
//
// O(total payments) per call, by design: the allocator stays stateless
// and self-heals from manual data edits. Postgres gives the
// read-after-write consistency the allocator relies on.
type ReceiptScanRepository struct {
	DB *pgxpool.Pool
}

func NewReceiptScanRepository(db *pgxpool.Pool) *ReceiptScanRepository {
	return &ReceiptScanRepository{DB: db}
}

func (r *ReceiptScanRepository) UsedReceiptNumbers(ctx context.Context, prefix string, year int) (map[int]bool, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)
	query := `
		SELECT p->>'receipt_no'
		FROM pledge_entries, jsonb_array_elements(payments) AS p
		WHERE p->>'receipt_no' LIKE $1
		UNION ALL
		SELECT receipt_no FROM advance_payments WHERE receipt_no LIKE $1
	`
	rows, err := r.DB.Query(ctx, query, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan receipt numbers: %w", err)
	}
	defer rows.Close()

	used := make(map[int]bool)
	for rows.Next() {
		var no string
		if err := rows.Scan(&no); err != nil {
			return nil, err
		}
		// Fallback (T-marked) and malformed numbers don't occupy a
		// block slot, so they are skipped rather than rejected.
		if _, n, ok := receipt.Parse(prefix, no); ok {
			used[n] = true
		}
	}
	return used, rows.Err()
}
