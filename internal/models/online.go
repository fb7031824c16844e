package models

import "time"

// Online order lifecycle.
const (
	OrderStatusPending = "pending"
	OrderStatusSuccess = "success"
	OrderStatusFailed  = "failed"
)

// OnlineOrder tracks a Razorpay order from creation to capture. One
// order pays against exactly one entry; the pledge payment itself is
// recorded only after signature verification.
type OnlineOrder struct {
	ID              int       `json:"id"`
	RazorpayOrderID string    `json:"razorpay_order_id"`
	EntryID         int       `json:"entry_id"`
	UserID          int       `json:"user_id"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	PaymentID       string    `json:"payment_id,omitempty"`
	Method          string    `json:"method,omitempty"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	ReceiptNo       string    `json:"receipt_no,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateOrderRequest struct {
	EntryID int   `json:"entry_id"`
	Amount  int64 `json:"amount"`
}

type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	AmountPaise int64  `json:"amount_paise"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}
