package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"daan-backend/internal/models"

	"github.com/jackc/pgx/v5"
	razorpay "github.com/razorpay/razorpay-go"
)

// OnlineOrderStore persists the Razorpay order lifecycle.
type OnlineOrderStore interface {
	Create(ctx context.Context, o *models.OnlineOrder) error
	GetByOrderID(ctx context.Context, orderID string) (*models.OnlineOrder, error)
	MarkSuccess(ctx context.Context, orderID, paymentID, method, receiptNo string) (bool, error)
	MarkFailed(ctx context.Context, orderID, reason string) error
	ListByUser(ctx context.Context, userID int) ([]*models.OnlineOrder, error)
}

// RazorpayService lets donors pay a pledge online. A successful capture
// ends up as a normal payment with mode "online" on the entry, so it
// flows through the same receipt numbering and overshoot checks as a
// counter payment.
type RazorpayService struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string

	Orders   OnlineOrderStore
	Entries  EntryStore
	Payments *PaymentService
}

func NewRazorpayService(keyID, keySecret, webhookSecret string, orders OnlineOrderStore, entries EntryStore, payments *PaymentService) *RazorpayService {
	var client *razorpay.Client
	if keyID != "" && keySecret != "" {
		client = razorpay.NewClient(keyID, keySecret)
	}
	return &RazorpayService{
		client:        client,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		Orders:        orders,
		Entries:       entries,
		Payments:      payments,
	}
}

// Enabled reports whether credentials are configured.
func (s *RazorpayService) Enabled() bool {
	return s.client != nil
}

// CreateOrder opens a Razorpay order for a partial or full payment
// against an entry. The same fit checks as RecordPayment run up front
// so a donor cannot open an order the ledger would later refuse.
func (s *RazorpayService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if !s.Enabled() {
		return nil, rulef("online payments are not configured")
	}

	entry, err := s.Entries.Get(ctx, req.EntryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: entry %d", ErrNotFound, req.EntryID)
		}
		return nil, fmt.Errorf("failed to load entry %d: %w", req.EntryID, err)
	}
	if err := checkPaymentFits(entry, req.Amount); err != nil {
		return nil, err
	}

	// Ledger amounts are whole rupees; Razorpay wants paise.
	amountPaise := req.Amount * 100
	orderData := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  fmt.Sprintf("entry_%d_%d", entry.ID, time.Now().Unix()),
		"notes": map[string]interface{}{
			"entry_id": entry.ID,
			"user_id":  entry.UserID,
		},
	}
	order, err := s.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}
	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}

	record := &models.OnlineOrder{
		RazorpayOrderID: orderID,
		EntryID:         entry.ID,
		UserID:          entry.UserID,
		Amount:          req.Amount,
	}
	if err := s.Orders.Create(ctx, record); err != nil {
		return nil, err
	}

	return &models.CreateOrderResponse{
		OrderID:     orderID,
		Amount:      req.Amount,
		AmountPaise: amountPaise,
		Currency:    "INR",
		KeyID:       s.keyID,
	}, nil
}

// VerifyPayment checks the checkout signature and records the payment
// on the entry. Already-settled orders return as-is, so the donor can
// retry verification safely.
func (s *RazorpayService) VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.OnlineOrder, error) {
	if !s.verifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		_ = s.Orders.MarkFailed(ctx, req.RazorpayOrderID, "invalid signature")
		return nil, rulef("invalid payment signature")
	}
	return s.settle(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, s.paymentMethod(req.RazorpayPaymentID))
}

func (s *RazorpayService) verifySignature(orderID, paymentID, signature string) bool {
	if s.keySecret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(s.keySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature verifies the webhook body signature.
func (s *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return true
	}
	h := hmac.New(sha256.New, []byte(s.webhookSecret))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProcessWebhook handles payment.captured and payment.failed events.
func (s *RazorpayService) ProcessWebhook(ctx context.Context, event string, payload map[string]interface{}) error {
	entity := webhookPaymentEntity(payload)
	orderID, _ := entity["order_id"].(string)
	if orderID == "" {
		return fmt.Errorf("missing order_id in webhook payload")
	}

	switch event {
	case "payment.captured":
		paymentID, _ := entity["id"].(string)
		method, _ := entity["method"].(string)
		_, err := s.settle(ctx, orderID, paymentID, method)
		return err
	case "payment.failed":
		reason, _ := entity["error_description"].(string)
		if reason == "" {
			reason = "payment failed"
		}
		return s.Orders.MarkFailed(ctx, orderID, reason)
	default:
		log.Printf("[Razorpay] unhandled webhook event: %s", event)
		return nil
	}
}

// settle records the pledge payment for a captured order. Idempotent:
// the order row is the guard, so the checkout callback and the webhook
// can both arrive without double-recording.
func (s *RazorpayService) settle(ctx context.Context, orderID, paymentID, method string) (*models.OnlineOrder, error) {
	order, err := s.Orders.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.Status == models.OrderStatusSuccess {
		return order, nil
	}

	paymentReq := &models.RecordPaymentRequest{
		Amount: order.Amount,
		Mode:   models.ModeOnline,
	}
	actor := models.Actor{Name: "razorpay", Role: models.RoleStaff}
	_, payment, err := s.Payments.RecordPayment(ctx, order.EntryID, paymentReq, actor)
	if err != nil {
		log.Printf("[Razorpay] failed to record payment for order %s: %v", orderID, err)
		_ = s.Orders.MarkFailed(ctx, orderID, err.Error())
		return nil, err
	}

	updated, err := s.Orders.MarkSuccess(ctx, orderID, paymentID, method, payment.ReceiptNo)
	if err != nil {
		return nil, err
	}
	if !updated {
		log.Printf("[Razorpay] order %s already settled concurrently", orderID)
	}
	return s.Orders.GetByOrderID(ctx, orderID)
}

// paymentMethod fetches the method (upi, card, netbanking) for display.
// Best effort only.
func (s *RazorpayService) paymentMethod(paymentID string) string {
	if s.client == nil {
		return ""
	}
	payment, err := s.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		log.Printf("[Razorpay] failed to fetch payment %s: %v", paymentID, err)
		return ""
	}
	method, _ := payment["method"].(string)
	return method
}

func (s *RazorpayService) ListOrders(ctx context.Context, userID int) ([]*models.OnlineOrder, error) {
	return s.Orders.ListByUser(ctx, userID)
}

// webhookPaymentEntity digs the payment entity out of the nested
// webhook payload shape.
func webhookPaymentEntity(payload map[string]interface{}) map[string]interface{} {
	entity := payload
	if p, ok := payload["payment"].(map[string]interface{}); ok {
		entity = p
	}
	if e, ok := entity["entity"].(map[string]interface{}); ok {
		entity = e
	}
	return entity
}
