package models

import (
	"encoding/json"
	"time"
)

// Transaction types. One row per mutating operation, plus an extra
// status_change row whenever an entry's payment status transitions.
const (
	TxnCredit        = "credit"
	TxnDebit         = "debit"
	TxnUpdateEntry   = "update_entry"
	TxnUpdatePayment = "update_payment"
	TxnDeleteEntry   = "delete_entry"
	TxnRestoreEntry  = "restore_entry"
	TxnStatusChange  = "status_change"
)

// Transaction is an immutable audit row. Never updated or deleted.
type Transaction struct {
	ID        int             `json:"id"`
	EntryID   *int            `json:"entry_id,omitempty"`
	EntryKind string          `json:"entry_kind,omitempty"` // boli | outstanding | advance
	UserID    int             `json:"user_id"`
	Type      string          `json:"type"`
	Amount    int64           `json:"amount"`
	Details   json.RawMessage `json:"details,omitempty"`
	Date      time.Time       `json:"date"`
	Username  string          `json:"username"` // Actor display name
	ActorID   int             `json:"actor_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransactionFilter narrows audit queries for reconciliation views.
type TransactionFilter struct {
	EntryID *int
	UserID  *int
	Type    string
	Limit   int
	Offset  int
}
