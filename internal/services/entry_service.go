package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"daan-backend/internal/models"
	"daan-backend/internal/notify"
	"daan-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
)

// EntryService creates and reads pledge entries. Mutations of the
// payments list live in PaymentService.
type EntryService struct {
	Entries  EntryStore
	Users    UserStore
	Txns     TransactionStore
	Notifier notify.Notifier
}

func NewEntryService(entries EntryStore, users UserStore, txns TransactionStore, notifier notify.Notifier) *EntryService {
	return &EntryService{Entries: entries, Users: users, Txns: txns, Notifier: notifier}
}

func (s *EntryService) Create(ctx context.Context, req *models.CreateEntryRequest, actor models.Actor) (*models.Entry, error) {
	if req.Kind != models.KindBoli && req.Kind != models.KindOutstanding {
		return nil, validationf("unknown entry kind %q", req.Kind)
	}
	if req.Amount <= 0 {
		return nil, validationf("amount must be positive, got %d", req.Amount)
	}
	if strings.TrimSpace(req.Item) == "" {
		return nil, validationf("item is required")
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	date, err := paymentDate(req.Date)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveDonor(ctx, req)
	if err != nil {
		return nil, err
	}

	// Donor name and phone are denormalized onto the entry so receipts
	// keep the figures as they were at pledge time.
	entry := &models.Entry{
		Kind:        req.Kind,
		UserID:      user.ID,
		UserName:    user.Name,
		UserPhone:   user.Phone,
		Item:        req.Item,
		Amount:      req.Amount,
		Quantity:    quantity,
		TotalAmount: req.Amount * int64(quantity),
		EntryStatus: models.EntryStatusActive,
		Payments:    []models.PaymentRecord{},
		CreatedByID: actor.ID,
	}
	entry.Recompute()

	if err := s.Entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{"item": entry.Item})
	txn := &models.Transaction{
		EntryID:   &entry.ID,
		EntryKind: entry.Kind,
		UserID:    entry.UserID,
		Type:      models.TxnCredit,
		Amount:    entry.TotalAmount,
		Details:   payload,
		Date:      date,
		Username:  actor.Name,
		ActorID:   actor.ID,
	}
	if err := s.Txns.Create(ctx, txn); err != nil {
		log.Printf("[Txn] failed to write audit row for entry %d: %v", entry.ID, err)
	}

	if s.Notifier != nil {
		s.Notifier.NotifyEntryCreated(user, entry)
	}

	return entry, nil
}

// resolveDonor finds the donor by id, then phone, creating a member
// record when none exists yet.
func (s *EntryService) resolveDonor(ctx context.Context, req *models.CreateEntryRequest) (*models.User, error) {
	if req.UserID > 0 {
		user, err := s.Users.Get(ctx, req.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to load user %d: %w", req.UserID, err)
		}
	}

	if len(req.Phone) != 10 {
		return nil, validationf("phone number must be exactly 10 digits")
	}
	if user, err := s.Users.GetByPhone(ctx, req.Phone); err == nil && user != nil {
		return user, nil
	}

	if strings.TrimSpace(req.UserName) == "" {
		return nil, validationf("donor name is required for a new member")
	}
	user := &models.User{
		Name:  req.UserName,
		Phone: req.Phone,
		Role:  models.RoleMember,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return user, nil
}

func (s *EntryService) Get(ctx context.Context, id int) (*models.Entry, error) {
	entry, err := s.Entries.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: entry %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load entry %d: %w", id, err)
	}
	return entry, nil
}

func (s *EntryService) List(ctx context.Context, kind string) ([]*models.Entry, error) {
	if kind != "" && kind != models.KindBoli && kind != models.KindOutstanding {
		return nil, validationf("unknown entry kind %q", kind)
	}
	return s.Entries.List(ctx, kind)
}

func (s *EntryService) ListByUser(ctx context.Context, userID int) ([]*models.Entry, error) {
	return s.Entries.ListByUser(ctx, userID)
}

func (s *EntryService) ListDeleted(ctx context.Context) ([]*models.Entry, error) {
	return s.Entries.ListDeleted(ctx)
}

func (s *EntryService) Summary(ctx context.Context, kind string) (*models.EntrySummary, error) {
	if kind != models.KindBoli && kind != models.KindOutstanding {
		return nil, validationf("unknown entry kind %q", kind)
	}
	return s.Entries.Summary(ctx, kind)
}

// UpdateItem edits the pledge item text. Amounts never change here;
// money moves only through payments.
func (s *EntryService) UpdateItem(ctx context.Context, id int, item string, actor models.Actor) (*models.Entry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.EntryStatus != models.EntryStatusActive {
		return nil, rulef("entry %d is deleted", entry.ID)
	}
	if strings.TrimSpace(item) == "" {
		return nil, validationf("item cannot be empty")
	}
	if item == entry.Item {
		return entry, nil
	}

	old := entry.Item
	entry.Item = item
	if err := s.Entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"changes": map[string]interface{}{
			"item": map[string]string{"from": old, "to": item},
		},
	})
	txn := &models.Transaction{
		EntryID:   &entry.ID,
		EntryKind: entry.Kind,
		UserID:    entry.UserID,
		Type:      models.TxnUpdateEntry,
		Amount:    0,
		Details:   payload,
		Date:      timeutil.Now(),
		Username:  actor.Name,
		ActorID:   actor.ID,
	}
	if err := s.Txns.Create(ctx, txn); err != nil {
		log.Printf("[Txn] failed to write audit row for entry %d: %v", entry.ID, err)
	}

	return entry, nil
}
