package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"daan-backend/internal/metrics"
	"daan-backend/internal/models"
	"daan-backend/internal/notify"
	"daan-backend/internal/receipt"
	"daan-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
)

// PaymentService orchestrates everything that touches an entry's
// payments list: recording, editing, deleting payments, and soft
// delete/restore of the entry itself. All derived fields
// (received/pending/status) are recomputed from the payments list inside
// the same write, never trusted independently.
//
// Concurrency: there is no in-process locking. Overshoot of the total
// amount is prevented by re-reading the entry immediately before the
// write and re-running the checks against the fresh snapshot; a failure
// there is reported as ErrConcurrentUpdate and the caller retries.
type PaymentService struct {
	Entries   EntryStore
	Advances  AdvanceStore
	Txns      TransactionStore
	Allocator ReceiptAllocator
	Users     UserStore
	Notifier  notify.Notifier
}

func NewPaymentService(entries EntryStore, advances AdvanceStore, txns TransactionStore, allocator ReceiptAllocator) *PaymentService {
	return &PaymentService{
		Entries:   entries,
		Advances:  advances,
		Txns:      txns,
		Allocator: allocator,
	}
}

// SetNotifier wires the notification collaborator. Optional.
func (s *PaymentService) SetNotifier(users UserStore, notifier notify.Notifier) {
	s.Users = users
	s.Notifier = notifier
}

func streamFor(kind string) receipt.Stream {
	if kind == models.KindOutstanding {
		return receipt.StreamOutstanding
	}
	return receipt.StreamBoli
}

// RecordPayment appends one payment to an entry.
func (s *PaymentService) RecordPayment(ctx context.Context, entryID int, req *models.RecordPaymentRequest, actor models.Actor) (*models.Entry, *models.PaymentRecord, error) {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}

	date, err := paymentDate(req.Date)
	if err != nil {
		return nil, nil, err
	}
	if !models.ValidMode(req.Mode) {
		return nil, nil, validationf("unknown payment mode %q", req.Mode)
	}

	// First-pass checks against the snapshot already read. Each is a
	// hard rejection with nothing written.
	if err := checkPaymentFits(entry, req.Amount); err != nil {
		return nil, nil, err
	}

	// Advance draws are checked against the derived balance but the
	// usage row is NOT written yet; it only lands after the re-read.
	if req.Mode == models.ModeAdvance {
		balance, err := s.advanceBalance(ctx, entry.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to compute advance balance: %w", err)
		}
		if req.Amount > balance {
			return nil, nil, rulef("insufficient advance balance: have %d, draw of %d requested", balance, req.Amount)
		}
	}

	receiptNo, err := s.Allocator.Allocate(ctx, streamFor(entry.Kind), date)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to allocate receipt number: %w", err)
	}

	// Re-read and re-validate. Another payment may have landed between
	// the first read and now; this second check is the only concurrency
	// guard and must not be skipped.
	entry, err = s.getEntry(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}
	if recheckErr := checkPaymentFits(entry, req.Amount); recheckErr != nil {
		metrics.PaymentConflictsTotal.Inc()
		return nil, nil, fmt.Errorf("%w (amount %d no longer fits, pending is %d)",
			ErrConcurrentUpdate, req.Amount, entry.PendingAmount)
	}

	if req.Mode == models.ModeAdvance {
		// Re-derive the balance against the committed state so two
		// concurrent draws cannot both succeed against one deposit.
		balance, err := s.advanceBalance(ctx, entry.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to recompute advance balance: %w", err)
		}
		if req.Amount > balance {
			metrics.PaymentConflictsTotal.Inc()
			return nil, nil, fmt.Errorf("%w (advance balance is now %d)", ErrConcurrentUpdate, balance)
		}
		usage := &models.AdvanceUsage{
			UserID:      entry.UserID,
			EntryID:     entry.ID,
			Amount:      req.Amount,
			Date:        date,
			CreatedByID: actor.ID,
		}
		if err := s.Advances.CreateUsage(ctx, usage); err != nil {
			return nil, nil, fmt.Errorf("failed to record advance usage: %w", err)
		}
	}

	oldStatus := entry.Status
	payment := models.PaymentRecord{
		Date:      date,
		Amount:    req.Amount,
		Mode:      req.Mode,
		ProofURL:  req.ProofURL,
		ReceiptNo: receiptNo,
		UpdatedBy: actor.Name,
	}
	entry.Payments = append(entry.Payments, payment)
	entry.Recompute()

	if err := s.Entries.Update(ctx, entry); err != nil {
		return nil, nil, err
	}

	s.logTxn(ctx, entry, models.TxnDebit, req.Amount, date, actor, map[string]interface{}{
		"receipt_no": receiptNo,
		"mode":       req.Mode,
	})
	s.logStatusChange(ctx, entry, oldStatus, date, actor)
	s.notifyPayment(entry, &payment, oldStatus)

	return entry, &payment, nil
}

// checkPaymentFits runs the precondition chain for adding amount to the
// entry, in the contract's order.
func checkPaymentFits(entry *models.Entry, amount int64) error {
	if entry.EntryStatus != models.EntryStatusActive {
		return rulef("entry %d is deleted", entry.ID)
	}
	if entry.Status == models.StatusFull {
		return rulef("entry %d is already fully paid (total %d)", entry.ID, entry.TotalAmount)
	}
	if entry.PendingAmount <= 0 {
		return rulef("entry %d has no pending amount", entry.ID)
	}
	if amount <= 0 {
		return validationf("payment amount must be positive, got %d", amount)
	}
	if amount > entry.TotalAmount {
		return rulef("payment of %d exceeds total amount %d", amount, entry.TotalAmount)
	}
	if amount > entry.PendingAmount {
		return rulef("payment of %d exceeds pending amount %d", amount, entry.PendingAmount)
	}
	if entry.ReceivedAmount+amount > entry.TotalAmount {
		return rulef("payment of %d would push received %d past total %d",
			amount, entry.ReceivedAmount, entry.TotalAmount)
	}
	return nil
}

// EditPayment changes fields of an existing payment. Admins may change
// date, amount, mode and proof; accountants may change only the mode,
// and any move away from cash must carry a proof reference.
func (s *PaymentService) EditPayment(ctx context.Context, entryID int, receiptNo string, req *models.EditPaymentRequest, actor models.Actor) (*models.Entry, error) {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.EntryStatus != models.EntryStatusActive {
		return nil, rulef("entry %d is deleted", entry.ID)
	}
	idx := entry.FindPayment(receiptNo)
	if idx < 0 {
		return nil, fmt.Errorf("%w: payment %s on entry %d", ErrNotFound, receiptNo, entryID)
	}
	p := entry.Payments[idx]

	switch actor.Role {
	case models.RoleAdmin:
		// Full edit rights.
	case models.RoleAccountant:
		if req.Amount != nil || req.Date != nil || (req.ProofURL != nil && req.Mode == nil) {
			return nil, rulef("accountants may only change the payment mode")
		}
		if req.Mode != nil && p.Mode == models.ModeCash && *req.Mode != models.ModeCash {
			if req.ProofURL == nil || *req.ProofURL == "" {
				return nil, validationf("a proof file is required when changing mode away from cash")
			}
		}
	default:
		return nil, rulef("role %q may not edit payments", actor.Role)
	}

	diff := map[string]interface{}{}
	if req.Amount != nil && *req.Amount != p.Amount {
		if *req.Amount <= 0 {
			return nil, validationf("payment amount must be positive, got %d", *req.Amount)
		}
		if entry.ReceivedAmount-p.Amount+*req.Amount > entry.TotalAmount {
			return nil, rulef("edited amount %d would push received past total %d", *req.Amount, entry.TotalAmount)
		}
		diff["amount"] = map[string]int64{"from": p.Amount, "to": *req.Amount}
		p.Amount = *req.Amount
	}
	if req.Date != nil {
		date, err := paymentDate(*req.Date)
		if err != nil {
			return nil, err
		}
		if !date.Equal(p.Date) {
			diff["date"] = map[string]string{
				"from": timeutil.FormatIST(p.Date, timeutil.DateLayout),
				"to":   timeutil.FormatIST(date, timeutil.DateLayout),
			}
			p.Date = date
		}
	}
	if req.Mode != nil && *req.Mode != p.Mode {
		if !models.ValidMode(*req.Mode) {
			return nil, validationf("unknown payment mode %q", *req.Mode)
		}
		if p.Mode == models.ModeAdvance || *req.Mode == models.ModeAdvance {
			return nil, rulef("advance-draw payments cannot change mode; delete and re-record instead")
		}
		diff["mode"] = map[string]string{"from": p.Mode, "to": *req.Mode}
		p.Mode = *req.Mode
	}
	if req.ProofURL != nil && *req.ProofURL != p.ProofURL {
		diff["proof_url"] = map[string]string{"from": p.ProofURL, "to": *req.ProofURL}
		p.ProofURL = *req.ProofURL
	}

	if len(diff) == 0 {
		return entry, nil
	}
	p.UpdatedBy = actor.Name
	entry.Payments[idx] = p

	oldStatus := entry.Status
	entry.Recompute()
	if err := s.Entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logTxn(ctx, entry, models.TxnUpdatePayment, p.Amount, timeutil.Now(), actor, map[string]interface{}{
		"receipt_no": receiptNo,
		"changes":    diff,
	})
	s.logStatusChange(ctx, entry, oldStatus, timeutil.Now(), actor)

	return entry, nil
}

// DeletePayment removes one payment and logs a reversing credit. The
// receipt number stays burned: the allocator never hands it out again.
//
// An advance-draw payment's usage row is left in place; see DESIGN.md
// (pending product decision on reversing the draw).
func (s *PaymentService) DeletePayment(ctx context.Context, entryID int, receiptNo string, actor models.Actor) (*models.Entry, error) {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.EntryStatus != models.EntryStatusActive {
		return nil, rulef("entry %d is deleted", entry.ID)
	}
	idx := entry.FindPayment(receiptNo)
	if idx < 0 {
		return nil, fmt.Errorf("%w: payment %s on entry %d", ErrNotFound, receiptNo, entryID)
	}
	// Tagged deleted rather than removed: the record stays in the list
	// so the used-number scan keeps the receipt number burned.
	entry.Payments[idx].Deleted = true
	entry.Payments[idx].UpdatedBy = actor.Name
	removed := entry.Payments[idx]

	oldStatus := entry.Status
	entry.Recompute()
	if err := s.Entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logTxn(ctx, entry, models.TxnCredit, removed.Amount, timeutil.Now(), actor, map[string]interface{}{
		"action":                 "payment_deleted",
		"receipt_no":             receiptNo,
		"mode":                   removed.Mode,
		"advance_usage_reversed": false,
	})
	s.logStatusChange(ctx, entry, oldStatus, timeutil.Now(), actor)

	return entry, nil
}

// SoftDeleteEntry marks the entry deleted. The payments list is left
// untouched so a restore can rebuild the pre-delete figures; the
// derived fields are reset here because a deleted entry contributes
// nothing to summaries. A reversing debit for the full amount is
// logged.
func (s *PaymentService) SoftDeleteEntry(ctx context.Context, entryID int, actor models.Actor) (*models.Entry, error) {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.EntryStatus == models.EntryStatusDeleted {
		return nil, rulef("entry %d is already deleted", entry.ID)
	}

	// Payment delete tags are left alone so a later restore reproduces
	// exactly the pre-delete figures. The derived fields are zeroed
	// directly: a deleted entry contributes nothing anywhere.
	oldStatus := entry.Status
	entry.EntryStatus = models.EntryStatusDeleted
	entry.ReceivedAmount = 0
	entry.PendingAmount = entry.TotalAmount
	entry.Status = models.StatusPending
	if err := s.Entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logTxn(ctx, entry, models.TxnDebit, entry.TotalAmount, timeutil.Now(), actor, map[string]interface{}{
		"action": models.TxnDeleteEntry,
	})
	s.logStatusChange(ctx, entry, oldStatus, timeutil.Now(), actor)

	return entry, nil
}

// RestoreEntry reverses a soft delete: the entry goes active again and
// the derived fields are recomputed from the untouched payments list,
// so payments deleted individually before the soft delete stay
// deleted. A reversing credit is logged.
func (s *PaymentService) RestoreEntry(ctx context.Context, entryID int, actor models.Actor) (*models.Entry, error) {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.EntryStatus != models.EntryStatusDeleted {
		return nil, rulef("entry %d is not deleted", entry.ID)
	}

	oldStatus := entry.Status
	entry.EntryStatus = models.EntryStatusActive
	entry.Recompute()
	if err := s.Entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logTxn(ctx, entry, models.TxnCredit, entry.TotalAmount, timeutil.Now(), actor, map[string]interface{}{
		"action": models.TxnRestoreEntry,
	})
	s.logStatusChange(ctx, entry, oldStatus, timeutil.Now(), actor)

	return entry, nil
}

func (s *PaymentService) advanceBalance(ctx context.Context, userID int) (int64, error) {
	deposits, err := s.Advances.SumDeposits(ctx, userID)
	if err != nil {
		return 0, err
	}
	usages, err := s.Advances.SumUsages(ctx, userID)
	if err != nil {
		return 0, err
	}
	balance := deposits - usages
	if balance < 0 {
		balance = 0
	}
	return balance, nil
}

func (s *PaymentService) getEntry(ctx context.Context, id int) (*models.Entry, error) {
	entry, err := s.Entries.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: entry %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load entry %d: %w", id, err)
	}
	return entry, nil
}

// logTxn appends an audit row. The entry write has already been
// committed at this point, so a failed audit write is logged rather
// than surfaced (the two writes are not one transaction).
func (s *PaymentService) logTxn(ctx context.Context, entry *models.Entry, txnType string, amount int64, date time.Time, actor models.Actor, details map[string]interface{}) {
	payload, _ := json.Marshal(details)
	txn := &models.Transaction{
		EntryID:   &entry.ID,
		EntryKind: entry.Kind,
		UserID:    entry.UserID,
		Type:      txnType,
		Amount:    amount,
		Details:   payload,
		Date:      date,
		Username:  actor.Name,
		ActorID:   actor.ID,
	}
	if err := s.Txns.Create(ctx, txn); err != nil {
		log.Printf("[Txn] failed to write audit row for entry %d: %v", entry.ID, err)
	}
}

func (s *PaymentService) logStatusChange(ctx context.Context, entry *models.Entry, oldStatus string, date time.Time, actor models.Actor) {
	if entry.Status == oldStatus {
		return
	}
	s.logTxn(ctx, entry, models.TxnStatusChange, entry.ReceivedAmount, date, actor, map[string]interface{}{
		"from": oldStatus,
		"to":   entry.Status,
	})
}

func (s *PaymentService) notifyPayment(entry *models.Entry, payment *models.PaymentRecord, oldStatus string) {
	if s.Notifier == nil || s.Users == nil {
		return
	}
	user, err := s.Users.Get(context.Background(), entry.UserID)
	if err != nil {
		log.Printf("[Notify] user %d lookup failed: %v", entry.UserID, err)
		return
	}
	s.Notifier.NotifyPaymentRecorded(user, entry, payment)
	if entry.Status != oldStatus {
		s.Notifier.NotifyPaymentStatusChanged(user, entry, oldStatus, entry.Status)
	}
}

// paymentDate parses a YYYY-MM-DD date in IST; empty means today.
// Future-dated payments are rejected.
func paymentDate(s string) (time.Time, error) {
	if s == "" {
		return timeutil.Now(), nil
	}
	date, err := timeutil.ParseInIST(timeutil.DateLayout, s)
	if err != nil {
		return time.Time{}, validationf("invalid date %q, want YYYY-MM-DD", s)
	}
	if date.After(timeutil.EndOfDay(timeutil.Now())) {
		return time.Time{}, validationf("date %s is in the future", s)
	}
	return date, nil
}
