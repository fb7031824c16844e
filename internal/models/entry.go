package models

import "time"

// Entry kinds. Boli entries are live pledges; outstanding entries carry
// legacy balances from before the system existed. Both share one receipt
// sequence space, partitioned into per-stream blocks.
const (
	KindBoli        = "boli"
	KindOutstanding = "outstanding"
)

// Payment status, fully determined by received vs total.
const (
	StatusPending = "pending"
	StatusPartial = "partial"
	StatusFull    = "full"
)

// Entry lifecycle status (soft delete).
const (
	EntryStatusActive  = "active"
	EntryStatusDeleted = "deleted"
)

// Payment modes.
const (
	ModeCash         = "cash"
	ModeUPI          = "upi"
	ModeBankTransfer = "bank_transfer"
	ModeCheque       = "cheque"
	ModeOnline       = "online"
	ModeAdvance      = "advance"
)

// ValidMode reports whether m is a recognised payment mode.
func ValidMode(m string) bool {
	switch m {
	case ModeCash, ModeUPI, ModeBankTransfer, ModeCheque, ModeOnline, ModeAdvance:
		return true
	}
	return false
}

// PaymentRecord is embedded inside its Entry's payments list. It has no
// identity of its own; the receipt number addresses it within the entry.
type PaymentRecord struct {
	Date      time.Time `json:"date"`
	Amount    int64     `json:"amount"`
	Mode      string    `json:"mode"`
	ProofURL  string    `json:"proof_url,omitempty"`
	ReceiptNo string    `json:"receipt_no"`
	UpdatedBy string    `json:"updated_by"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// Entry is a pledge (boli) or previous-outstanding record. All monetary
// values are whole rupees (int64), never fractional.
type Entry struct {
	ID             int             `json:"id"`
	Kind           string          `json:"kind"`
	UserID         int             `json:"user_id"`
	UserName       string          `json:"user_name"` // Denormalized for receipts/display
	UserPhone      string          `json:"user_phone"`
	Item           string          `json:"item"` // Boli item/occasion
	Amount         int64           `json:"amount"`
	Quantity       int             `json:"quantity"`
	TotalAmount    int64           `json:"total_amount"`
	ReceivedAmount int64           `json:"received_amount"`
	PendingAmount  int64           `json:"pending_amount"`
	Status         string          `json:"status"`
	Payments       []PaymentRecord `json:"payments"`
	EntryStatus    string          `json:"entry_status"`
	CreatedByID    int             `json:"created_by_id"`
	CreatedByName  string          `json:"created_by_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Recompute refreshes the derived fields from the payments list. The
// stored received/pending/status are a materialized view; this is the
// single place they are calculated.
func (e *Entry) Recompute() {
	var received int64
	for _, p := range e.Payments {
		if !p.Deleted {
			received += p.Amount
		}
	}
	e.ReceivedAmount = received
	e.PendingAmount = e.TotalAmount - received
	if e.PendingAmount < 0 {
		e.PendingAmount = 0
	}
	switch {
	case received <= 0:
		e.Status = StatusPending
	case received < e.TotalAmount:
		e.Status = StatusPartial
	default:
		e.Status = StatusFull
	}
}

// FindPayment returns the index of the non-deleted payment carrying the
// given receipt number, or -1.
func (e *Entry) FindPayment(receiptNo string) int {
	for i, p := range e.Payments {
		if p.ReceiptNo == receiptNo && !p.Deleted {
			return i
		}
	}
	return -1
}

type CreateEntryRequest struct {
	Kind     string `json:"kind"`
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
	Phone    string `json:"phone"`
	Item     string `json:"item"`
	Amount   int64  `json:"amount"`
	Quantity int    `json:"quantity"`
	Date     string `json:"date"` // YYYY-MM-DD, defaults to today
}

type RecordPaymentRequest struct {
	Amount   int64  `json:"amount"`
	Date     string `json:"date"` // YYYY-MM-DD, defaults to today
	Mode     string `json:"mode"`
	ProofURL string `json:"proof_url,omitempty"`
}

type EditPaymentRequest struct {
	Amount   *int64  `json:"amount,omitempty"`
	Date     *string `json:"date,omitempty"`
	Mode     *string `json:"mode,omitempty"`
	ProofURL *string `json:"proof_url,omitempty"`
}

// EntrySummary is the dashboard aggregate per kind.
type EntrySummary struct {
	Kind          string `json:"kind"`
	EntryCount    int    `json:"entry_count"`
	TotalAmount   int64  `json:"total_amount"`
	TotalReceived int64  `json:"total_received"`
	TotalPending  int64  `json:"total_pending"`
}
