package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"daan-backend/internal/models"
	"daan-backend/internal/receipt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "SSJ"

type paymentFixture struct {
	entries  *memEntryStore
	advances *memAdvanceStore
	txns     *memTxnStore
	svc      *PaymentService
}

func newPaymentFixture() *paymentFixture {
	entries := newMemEntryStore()
	advances := newMemAdvanceStore()
	txns := newMemTxnStore()
	allocator := receipt.NewAllocator(testPrefix, &memUsedSource{entries: entries, advances: advances})
	return &paymentFixture{
		entries:  entries,
		advances: advances,
		txns:     txns,
		svc:      NewPaymentService(entries, advances, txns, allocator),
	}
}

func (f *paymentFixture) seedEntry(t *testing.T, kind string, total int64) *models.Entry {
	t.Helper()
	entry := &models.Entry{
		Kind:        kind,
		UserID:      1,
		UserName:    "Ramesh Jain",
		UserPhone:   "9876543210",
		Item:        "Dhwaja",
		Amount:      total,
		Quantity:    1,
		TotalAmount: total,
		EntryStatus: models.EntryStatusActive,
		Payments:    []models.PaymentRecord{},
	}
	entry.Recompute()
	require.NoError(t, f.entries.Create(context.Background(), entry))
	return entry
}

var staffActor = models.Actor{ID: 7, Name: "Suresh", Role: models.RoleStaff}

func TestRecordPaymentPartialThenFull(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 1000)

	got, payment, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 400, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)
	assert.Equal(t, int64(400), got.ReceivedAmount)
	assert.Equal(t, int64(600), got.PendingAmount)
	assert.Equal(t, models.StatusPartial, got.Status)

	year, n, ok := receipt.Parse(testPrefix, payment.ReceiptNo)
	require.True(t, ok)
	assert.Equal(t, 1, n)
	assert.True(t, receipt.Owns(receipt.StreamBoli, n))
	assert.NotZero(t, year)

	got, payment, err = f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 600, Mode: models.ModeUPI,
	}, staffActor)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.ReceivedAmount)
	assert.Equal(t, int64(0), got.PendingAmount)
	assert.Equal(t, models.StatusFull, got.Status)
	_, n, ok = receipt.Parse(testPrefix, payment.ReceiptNo)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	// Fully paid entries accept nothing further.
	_, _, err = f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 1, Mode: models.ModeCash,
	}, staffActor)
	assert.ErrorIs(t, err, ErrBusinessRule)

	debits := f.txns.ofType(models.TxnDebit)
	require.Len(t, debits, 2)
	assert.Equal(t, int64(400), debits[0].Amount)
	assert.Equal(t, int64(600), debits[1].Amount)

	// pending -> partial and partial -> full.
	changes := f.txns.ofType(models.TxnStatusChange)
	assert.Len(t, changes, 2)
}

func TestRecordPaymentOutstandingStream(t *testing.T) {
	f := newPaymentFixture()
	entry := f.seedEntry(t, models.KindOutstanding, 500)

	_, payment, err := f.svc.RecordPayment(context.Background(), entry.ID, &models.RecordPaymentRequest{
		Amount: 200, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)

	_, n, ok := receipt.Parse(testPrefix, payment.ReceiptNo)
	require.True(t, ok)
	assert.Equal(t, 201, n)
	assert.True(t, receipt.Owns(receipt.StreamOutstanding, n))
}

func TestRecordPaymentRejections(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 500)

	cases := []struct {
		name string
		req  models.RecordPaymentRequest
		want error
	}{
		{"zero amount", models.RecordPaymentRequest{Amount: 0, Mode: models.ModeCash}, ErrValidation},
		{"negative amount", models.RecordPaymentRequest{Amount: -50, Mode: models.ModeCash}, ErrValidation},
		{"unknown mode", models.RecordPaymentRequest{Amount: 100, Mode: "barter"}, ErrValidation},
		{"future date", models.RecordPaymentRequest{Amount: 100, Mode: models.ModeCash, Date: "2999-01-01"}, ErrValidation},
		{"exceeds total", models.RecordPaymentRequest{Amount: 600, Mode: models.ModeCash}, ErrBusinessRule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.RecordPayment(ctx, entry.ID, &tc.req, staffActor)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Nothing was written by any rejected attempt.
	fresh, err := f.entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.Payments)
	assert.Equal(t, int64(0), fresh.ReceivedAmount)

	_, _, err = f.svc.RecordPayment(ctx, 999, &models.RecordPaymentRequest{
		Amount: 100, Mode: models.ModeCash,
	}, staffActor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPaymentOvershootAfterPartial(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 500)

	_, _, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 300, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)

	_, _, err = f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 300, Mode: models.ModeCash,
	}, staffActor)
	assert.ErrorIs(t, err, ErrBusinessRule)

	fresh, err := f.entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), fresh.ReceivedAmount)
	assert.Len(t, fresh.Payments, 1)
}

func TestRecordPaymentConcurrentConflict(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 1000)

	// A competing payment of 800 lands between the first read and the
	// re-read; the 400 no longer fits.
	conflicting := &conflictEntryStore{memEntryStore: f.entries}
	conflicting.onSecond = func(s *memEntryStore) {
		e, _ := s.Get(ctx, entry.ID)
		e.Payments = append(e.Payments, models.PaymentRecord{
			Amount: 800, Mode: models.ModeCash, ReceiptNo: receipt.Format(testPrefix, 2026, 1),
		})
		e.Recompute()
		_ = s.Update(ctx, e)
	}
	f.svc.Entries = conflicting

	_, _, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 400, Mode: models.ModeCash,
	}, staffActor)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	// The competing payment is intact and nothing extra was written.
	fresh, err := f.entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), fresh.ReceivedAmount)
	assert.Len(t, fresh.Payments, 1)
}

func TestRecordPaymentConcurrentGoroutines(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 1000)

	// Five callers race 400 each against a total of 1000. Losers of the
	// re-read guard retry until they land or the amount no longer fits;
	// exactly two can ever succeed.
	var (
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for attempt := 0; attempt < 50; attempt++ {
				_, _, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
					Amount: 400, Mode: models.ModeCash,
				}, staffActor)
				if errors.Is(err, ErrConcurrentUpdate) {
					continue
				}
				mu.Lock()
				if err == nil {
					succeeded++
				} else if errors.Is(err, ErrBusinessRule) {
					refused++
				} else {
					t.Errorf("unexpected error: %v", err)
				}
				mu.Unlock()
				return
			}
			t.Error("caller never reached a terminal outcome")
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 3, refused)

	fresh, err := f.entries.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), fresh.ReceivedAmount)
	assert.Equal(t, int64(200), fresh.PendingAmount)
	assert.Equal(t, models.StatusPartial, fresh.Status)
	assert.Len(t, fresh.Payments, 2)
}

func TestRecordPaymentAllocatorFallback(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 1000)

	source := &memUsedSource{entries: f.entries, advances: f.advances, failNext: true}
	f.svc.Allocator = receipt.NewAllocator(testPrefix, source)

	_, payment, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 100, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)

	// Payment went through on a time-derived number the parser refuses.
	_, _, ok := receipt.Parse(testPrefix, payment.ReceiptNo)
	assert.False(t, ok)
	assert.Contains(t, payment.ReceiptNo, "-T")
}

func TestDeletePaymentBurnsReceiptNumber(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 1000)

	_, first, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 400, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)

	got, err := f.svc.DeletePayment(ctx, entry.ID, first.ReceiptNo, staffActor)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ReceivedAmount)
	assert.Equal(t, int64(1000), got.PendingAmount)
	assert.Equal(t, models.StatusPending, got.Status)

	credits := f.txns.ofType(models.TxnCredit)
	require.Len(t, credits, 1)
	assert.Equal(t, int64(400), credits[0].Amount)

	// The deleted payment's number stays burned.
	_, second, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 400, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)
	assert.NotEqual(t, first.ReceiptNo, second.ReceiptNo)
	_, n, ok := receipt.Parse(testPrefix, second.ReceiptNo)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	// Deleting it again fails: the tag hides it from lookup.
	_, err = f.svc.DeletePayment(ctx, entry.ID, first.ReceiptNo, staffActor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSoftDeleteAndRestoreRoundTrip(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 1000)

	_, _, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{Amount: 400, Mode: models.ModeCash}, staffActor)
	require.NoError(t, err)
	_, _, err = f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{Amount: 600, Mode: models.ModeUPI}, staffActor)
	require.NoError(t, err)

	deleted, err := f.svc.SoftDeleteEntry(ctx, entry.ID, staffActor)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusDeleted, deleted.EntryStatus)
	assert.Equal(t, int64(0), deleted.ReceivedAmount)
	assert.Equal(t, int64(1000), deleted.PendingAmount)
	assert.Equal(t, models.StatusPending, deleted.Status)

	// Deleted entries refuse payments and a second delete.
	_, _, err = f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{Amount: 100, Mode: models.ModeCash}, staffActor)
	assert.ErrorIs(t, err, ErrBusinessRule)
	_, err = f.svc.SoftDeleteEntry(ctx, entry.ID, staffActor)
	assert.ErrorIs(t, err, ErrBusinessRule)

	restored, err := f.svc.RestoreEntry(ctx, entry.ID, staffActor)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusActive, restored.EntryStatus)
	assert.Equal(t, int64(1000), restored.ReceivedAmount)
	assert.Equal(t, int64(0), restored.PendingAmount)
	assert.Equal(t, models.StatusFull, restored.Status)
	assert.Len(t, restored.Payments, 2)

	// delete 1000 debit, restore 1000 credit.
	found := false
	for _, d := range f.txns.ofType(models.TxnDebit) {
		if d.Amount == 1000 {
			found = true
		}
	}
	assert.True(t, found)
	found = false
	for _, c := range f.txns.ofType(models.TxnCredit) {
		if c.Amount == 1000 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRestorePreservesIndividuallyDeletedPayments(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 1000)

	_, first, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{Amount: 300, Mode: models.ModeCash}, staffActor)
	require.NoError(t, err)
	_, _, err = f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{Amount: 200, Mode: models.ModeCash}, staffActor)
	require.NoError(t, err)
	_, err = f.svc.DeletePayment(ctx, entry.ID, first.ReceiptNo, staffActor)
	require.NoError(t, err)

	_, err = f.svc.SoftDeleteEntry(ctx, entry.ID, staffActor)
	require.NoError(t, err)
	restored, err := f.svc.RestoreEntry(ctx, entry.ID, staffActor)
	require.NoError(t, err)

	// The individually deleted 300 stays deleted after the round trip.
	assert.Equal(t, int64(200), restored.ReceivedAmount)
	assert.Equal(t, int64(800), restored.PendingAmount)
	assert.Equal(t, models.StatusPartial, restored.Status)
}

func TestRecordPaymentAdvanceDraw(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 800)

	require.NoError(t, f.advances.CreateDeposit(ctx, &models.AdvancePayment{
		UserID: entry.UserID, Amount: 500, Mode: models.ModeCash,
		ReceiptNo: receipt.Format(testPrefix, 2026, 1),
	}))

	got, _, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 500, Mode: models.ModeAdvance,
	}, staffActor)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.ReceivedAmount)

	usages, err := f.advances.ListUsages(ctx, entry.UserID)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, int64(500), usages[0].Amount)
	assert.Equal(t, entry.ID, usages[0].EntryID)

	// Pool is exhausted: even one rupee more is refused.
	_, _, err = f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 1, Mode: models.ModeAdvance,
	}, staffActor)
	assert.ErrorIs(t, err, ErrBusinessRule)
}

func TestEditPaymentRoleRules(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	entry := f.seedEntry(t, models.KindBoli, 1000)

	_, payment, err := f.svc.RecordPayment(ctx, entry.ID, &models.RecordPaymentRequest{
		Amount: 400, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)

	admin := models.Actor{ID: 1, Name: "Mahesh", Role: models.RoleAdmin}
	accountant := models.Actor{ID: 2, Name: "Dinesh", Role: models.RoleAccountant}

	// Staff cannot edit at all.
	upi := models.ModeUPI
	_, err = f.svc.EditPayment(ctx, entry.ID, payment.ReceiptNo, &models.EditPaymentRequest{Mode: &upi}, staffActor)
	assert.ErrorIs(t, err, ErrBusinessRule)

	// Accountant cannot touch the amount.
	amount := int64(450)
	_, err = f.svc.EditPayment(ctx, entry.ID, payment.ReceiptNo, &models.EditPaymentRequest{Amount: &amount}, accountant)
	assert.ErrorIs(t, err, ErrBusinessRule)

	// Accountant cannot swap the proof without changing the mode.
	lone := "uploads/proofs/replacement.jpg"
	_, err = f.svc.EditPayment(ctx, entry.ID, payment.ReceiptNo, &models.EditPaymentRequest{ProofURL: &lone}, accountant)
	assert.ErrorIs(t, err, ErrBusinessRule)

	// Accountant moving cash to upi needs a proof reference.
	_, err = f.svc.EditPayment(ctx, entry.ID, payment.ReceiptNo, &models.EditPaymentRequest{Mode: &upi}, accountant)
	assert.ErrorIs(t, err, ErrValidation)

	proof := "uploads/proofs/txn-123.jpg"
	got, err := f.svc.EditPayment(ctx, entry.ID, payment.ReceiptNo, &models.EditPaymentRequest{Mode: &upi, ProofURL: &proof}, accountant)
	require.NoError(t, err)
	assert.Equal(t, models.ModeUPI, got.Payments[0].Mode)
	assert.Equal(t, proof, got.Payments[0].ProofURL)

	// Admin edits the amount; derived fields follow.
	got, err = f.svc.EditPayment(ctx, entry.ID, payment.ReceiptNo, &models.EditPaymentRequest{Amount: &amount}, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(450), got.ReceivedAmount)
	assert.Equal(t, int64(550), got.PendingAmount)

	// Admin cannot push received past total.
	tooMuch := int64(1200)
	_, err = f.svc.EditPayment(ctx, entry.ID, payment.ReceiptNo, &models.EditPaymentRequest{Amount: &tooMuch}, admin)
	assert.ErrorIs(t, err, ErrBusinessRule)

	edits := f.txns.ofType(models.TxnUpdatePayment)
	assert.Len(t, edits, 2)
}

func TestErrorCategoriesAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrConcurrentUpdate, ErrBusinessRule))
	assert.False(t, errors.Is(ErrBusinessRule, ErrValidation))
	assert.False(t, errors.Is(ErrConcurrentUpdate, ErrValidation))
}
