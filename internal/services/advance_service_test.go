package services

import (
	"context"
	"testing"

	"daan-backend/internal/models"
	"daan-backend/internal/receipt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type advanceFixture struct {
	entries  *memEntryStore
	advances *memAdvanceStore
	users    *memUserStore
	txns     *memTxnStore
	svc      *AdvanceService
}

func newAdvanceFixture(t *testing.T) *advanceFixture {
	t.Helper()
	f := &advanceFixture{
		entries:  newMemEntryStore(),
		advances: newMemAdvanceStore(),
		users:    newMemUserStore(),
		txns:     newMemTxnStore(),
	}
	allocator := receipt.NewAllocator(testPrefix, &memUsedSource{entries: f.entries, advances: f.advances})
	f.svc = NewAdvanceService(f.advances, f.users, f.txns, allocator)
	require.NoError(t, f.users.Create(context.Background(), &models.User{
		Name: "Ramesh Jain", Phone: "9876543210", Role: models.RoleMember,
	}))
	return f
}

func TestCreateDepositIssuesBoliStreamReceipt(t *testing.T) {
	f := newAdvanceFixture(t)
	ctx := context.Background()

	deposit, err := f.svc.CreateDeposit(ctx, &models.CreateAdvanceRequest{
		UserID: 1, Amount: 500, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)

	_, n, ok := receipt.Parse(testPrefix, deposit.ReceiptNo)
	require.True(t, ok)
	assert.Equal(t, 1, n)
	assert.True(t, receipt.Owns(receipt.StreamBoli, n))
	assert.Equal(t, "Ramesh Jain", deposit.UserName)

	// Deposit receipts occupy the shared number space: the next one
	// moves on.
	second, err := f.svc.CreateDeposit(ctx, &models.CreateAdvanceRequest{
		UserID: 1, Amount: 200, Mode: models.ModeUPI,
	}, staffActor)
	require.NoError(t, err)
	_, n, ok = receipt.Parse(testPrefix, second.ReceiptNo)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	credits := f.txns.ofType(models.TxnCredit)
	assert.Len(t, credits, 2)
}

func TestCreateDepositAuditRowCarriesNoEntry(t *testing.T) {
	f := newAdvanceFixture(t)
	ctx := context.Background()

	deposit, err := f.svc.CreateDeposit(ctx, &models.CreateAdvanceRequest{
		UserID: 1, Amount: 500, Mode: models.ModeCash,
	}, staffActor)
	require.NoError(t, err)

	credits := f.txns.ofType(models.TxnCredit)
	require.Len(t, credits, 1)
	row := credits[0]

	// A deposit concerns no pledge entry: entry_id is NULL in the audit
	// row, and entry_kind alone attributes it to the advance pool.
	assert.Nil(t, row.EntryID)
	assert.Equal(t, "advance", row.EntryKind)
	assert.Equal(t, 1, row.UserID)
	assert.Equal(t, int64(500), row.Amount)
	assert.Contains(t, string(row.Details), deposit.ReceiptNo)

	// Entry-scoped reconciliation never picks it up.
	entryID := 1
	scoped, err := f.txns.List(ctx, models.TransactionFilter{EntryID: &entryID})
	require.NoError(t, err)
	assert.Empty(t, scoped)
}

func TestCreateDepositRejections(t *testing.T) {
	f := newAdvanceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateDeposit(ctx, &models.CreateAdvanceRequest{UserID: 1, Amount: 0}, staffActor)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateDeposit(ctx, &models.CreateAdvanceRequest{UserID: 1, Amount: 100, Mode: "barter"}, staffActor)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateDeposit(ctx, &models.CreateAdvanceRequest{UserID: 1, Amount: 100, Mode: models.ModeAdvance}, staffActor)
	assert.ErrorIs(t, err, ErrBusinessRule)

	_, err = f.svc.CreateDeposit(ctx, &models.CreateAdvanceRequest{UserID: 42, Amount: 100}, staffActor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBalanceIsDerivedAndClamped(t *testing.T) {
	f := newAdvanceFixture(t)
	ctx := context.Background()

	balance, err := f.svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Balance)

	_, err = f.svc.CreateDeposit(ctx, &models.CreateAdvanceRequest{UserID: 1, Amount: 500, Mode: models.ModeCash}, staffActor)
	require.NoError(t, err)

	require.NoError(t, f.advances.CreateUsage(ctx, &models.AdvanceUsage{UserID: 1, EntryID: 3, Amount: 300}))

	balance, err = f.svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance.TotalDeposits)
	assert.Equal(t, int64(300), balance.TotalUsages)
	assert.Equal(t, int64(200), balance.Balance)

	// Historical damage (usages past deposits) floors at zero rather
	// than going negative.
	require.NoError(t, f.advances.CreateUsage(ctx, &models.AdvanceUsage{UserID: 1, EntryID: 4, Amount: 400}))
	balance, err = f.svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Balance)
}
