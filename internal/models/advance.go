package models

import "time"

// AdvancePayment is a deposit made before being allocated to any pledge.
// Rows are created once and never mutated.
type AdvancePayment struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	UserName      string    `json:"user_name"`
	Date          time.Time `json:"date"`
	Amount        int64     `json:"amount"`
	Mode          string    `json:"mode"`
	ReceiptNo     string    `json:"receipt_no"`
	CreatedByID   int       `json:"created_by_id"`
	CreatedByName string    `json:"created_by_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AdvanceUsage records a draw against a user's advance balance to satisfy
// a specific entry's payment. Append-only.
type AdvanceUsage struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	EntryID     int       `json:"entry_id"`
	Amount      int64     `json:"amount"`
	Date        time.Time `json:"date"`
	CreatedByID int       `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateAdvanceRequest struct {
	UserID int    `json:"user_id"`
	Amount int64  `json:"amount"`
	Mode   string `json:"mode"`
	Date   string `json:"date"` // YYYY-MM-DD, defaults to today
}

// AdvanceBalance is the derived unspent balance, clamped at zero.
type AdvanceBalance struct {
	UserID        int   `json:"user_id"`
	TotalDeposits int64 `json:"total_deposits"`
	TotalUsages   int64 `json:"total_usages"`
	Balance       int64 `json:"balance"`
}
