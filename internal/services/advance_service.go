package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"daan-backend/internal/models"
	"daan-backend/internal/receipt"

	"github.com/jackc/pgx/v5"
)

// AdvanceService handles deposits into a donor's advance pool and the
// derived balance. The balance is never stored: it is recomputed from
// the deposit and usage rows on every read.
type AdvanceService struct {
	Advances  AdvanceStore
	Users     UserStore
	Txns      TransactionStore
	Allocator ReceiptAllocator
}

func NewAdvanceService(advances AdvanceStore, users UserStore, txns TransactionStore, allocator ReceiptAllocator) *AdvanceService {
	return &AdvanceService{Advances: advances, Users: users, Txns: txns, Allocator: allocator}
}

// CreateDeposit records money paid in before any pledge exists. The
// deposit receives a receipt number from the boli stream, so deposit
// receipts and boli payment receipts share one number space.
func (s *AdvanceService) CreateDeposit(ctx context.Context, req *models.CreateAdvanceRequest, actor models.Actor) (*models.AdvancePayment, error) {
	if req.Amount <= 0 {
		return nil, validationf("deposit amount must be positive, got %d", req.Amount)
	}
	if req.Mode != "" && !models.ValidMode(req.Mode) {
		return nil, validationf("unknown payment mode %q", req.Mode)
	}
	if req.Mode == models.ModeAdvance {
		return nil, rulef("a deposit cannot itself be paid from the advance pool")
	}

	date, err := paymentDate(req.Date)
	if err != nil {
		return nil, err
	}

	user, err := s.Users.Get(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, req.UserID)
		}
		return nil, fmt.Errorf("failed to load user %d: %w", req.UserID, err)
	}

	receiptNo, err := s.Allocator.Allocate(ctx, receipt.StreamBoli, date)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate receipt number: %w", err)
	}

	mode := req.Mode
	if mode == "" {
		mode = models.ModeCash
	}
	deposit := &models.AdvancePayment{
		UserID:      user.ID,
		UserName:    user.Name,
		Amount:      req.Amount,
		Mode:        mode,
		Date:        date,
		ReceiptNo:   receiptNo,
		CreatedByID: actor.ID,
	}
	if err := s.Advances.CreateDeposit(ctx, deposit); err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"action":     "advance_deposit",
		"receipt_no": receiptNo,
		"mode":       mode,
	})
	txn := &models.Transaction{
		EntryKind: "advance",
		UserID:    user.ID,
		Type:      models.TxnCredit,
		Amount:    req.Amount,
		Details:   payload,
		Date:      date,
		Username:  actor.Name,
		ActorID:   actor.ID,
	}
	if err := s.Txns.Create(ctx, txn); err != nil {
		log.Printf("[Txn] failed to write audit row for deposit %s: %v", receiptNo, err)
	}

	return deposit, nil
}

// Balance derives the current advance pool for a donor. Floors at zero:
// a negative figure can only come from historical data damage and must
// not propagate into payment checks.
func (s *AdvanceService) Balance(ctx context.Context, userID int) (*models.AdvanceBalance, error) {
	deposits, err := s.Advances.SumDeposits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum deposits: %w", err)
	}
	usages, err := s.Advances.SumUsages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum usages: %w", err)
	}
	balance := deposits - usages
	if balance < 0 {
		balance = 0
	}
	return &models.AdvanceBalance{
		UserID:        userID,
		TotalDeposits: deposits,
		TotalUsages:   usages,
		Balance:       balance,
	}, nil
}

func (s *AdvanceService) ListDeposits(ctx context.Context, userID int) ([]*models.AdvancePayment, error) {
	return s.Advances.ListDeposits(ctx, userID)
}

func (s *AdvanceService) ListUsages(ctx context.Context, userID int) ([]*models.AdvanceUsage, error) {
	return s.Advances.ListUsages(ctx, userID)
}
