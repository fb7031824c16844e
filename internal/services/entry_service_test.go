package services

import (
	"context"
	"testing"

	"daan-backend/internal/models"
	"daan-backend/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entryFixture struct {
	entries *memEntryStore
	users   *memUserStore
	txns    *memTxnStore
	svc     *EntryService
}

func newEntryFixture() *entryFixture {
	f := &entryFixture{
		entries: newMemEntryStore(),
		users:   newMemUserStore(),
		txns:    newMemTxnStore(),
	}
	f.svc = NewEntryService(f.entries, f.users, f.txns, notify.NewLogNotifier())
	return f
}

func TestCreateEntryCreatesMemberByPhone(t *testing.T) {
	f := newEntryFixture()
	ctx := context.Background()

	entry, err := f.svc.Create(ctx, &models.CreateEntryRequest{
		Kind:     models.KindBoli,
		UserName: "Ramesh Jain",
		Phone:    "9876543210",
		Item:     "Dhwaja",
		Amount:   501,
		Quantity: 2,
	}, staffActor)
	require.NoError(t, err)

	assert.Equal(t, int64(1002), entry.TotalAmount)
	assert.Equal(t, int64(1002), entry.PendingAmount)
	assert.Equal(t, int64(0), entry.ReceivedAmount)
	assert.Equal(t, models.StatusPending, entry.Status)
	assert.Equal(t, models.EntryStatusActive, entry.EntryStatus)
	assert.Equal(t, "Ramesh Jain", entry.UserName)
	assert.Equal(t, "9876543210", entry.UserPhone)

	// The member record was created on the fly.
	user, err := f.users.GetByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, user.Role)
	assert.Equal(t, user.ID, entry.UserID)

	// Pledge total is credited to the audit log.
	credits := f.txns.ofType(models.TxnCredit)
	require.Len(t, credits, 1)
	assert.Equal(t, int64(1002), credits[0].Amount)
	assert.Equal(t, models.KindBoli, credits[0].EntryKind)
}

func TestCreateEntryReusesExistingMember(t *testing.T) {
	f := newEntryFixture()
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &models.User{
		Name: "Ramesh Jain", Phone: "9876543210", Role: models.RoleMember,
	}))

	entry, err := f.svc.Create(ctx, &models.CreateEntryRequest{
		Kind:   models.KindOutstanding,
		Phone:  "9876543210",
		Item:   "Previous year balance",
		Amount: 2500,
	}, staffActor)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.UserID)
	assert.Equal(t, int64(2500), entry.TotalAmount)

	users, err := f.users.List(ctx, models.RoleMember)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateEntryValidation(t *testing.T) {
	f := newEntryFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.CreateEntryRequest
	}{
		{"bad kind", models.CreateEntryRequest{Kind: "loan", Phone: "9876543210", Item: "x", Amount: 100}},
		{"zero amount", models.CreateEntryRequest{Kind: models.KindBoli, Phone: "9876543210", Item: "x", Amount: 0}},
		{"missing item", models.CreateEntryRequest{Kind: models.KindBoli, Phone: "9876543210", Amount: 100}},
		{"short phone", models.CreateEntryRequest{Kind: models.KindBoli, UserName: "R", Phone: "12345", Item: "x", Amount: 100}},
		{"future date", models.CreateEntryRequest{Kind: models.KindBoli, UserName: "R", Phone: "9876543210", Item: "x", Amount: 100, Date: "2999-01-01"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, &tc.req, staffActor)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSummaryCountsActiveOnly(t *testing.T) {
	f := newEntryFixture()
	ctx := context.Background()

	for _, amount := range []int64{1000, 2000} {
		_, err := f.svc.Create(ctx, &models.CreateEntryRequest{
			Kind: models.KindBoli, UserName: "R", Phone: "9876543210",
			Item: "Dhwaja", Amount: amount,
		}, staffActor)
		require.NoError(t, err)
	}

	sum, err := f.svc.Summary(ctx, models.KindBoli)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.EntryCount)
	assert.Equal(t, int64(3000), sum.TotalAmount)
	assert.Equal(t, int64(3000), sum.TotalPending)

	_, err = f.svc.Summary(ctx, "loan")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateItemLogsDiff(t *testing.T) {
	f := newEntryFixture()
	ctx := context.Background()
	entry, err := f.svc.Create(ctx, &models.CreateEntryRequest{
		Kind: models.KindBoli, UserName: "R", Phone: "9876543210",
		Item: "Dhwaja", Amount: 100,
	}, staffActor)
	require.NoError(t, err)

	got, err := f.svc.UpdateItem(ctx, entry.ID, "Dhwaja Rohan", staffActor)
	require.NoError(t, err)
	assert.Equal(t, "Dhwaja Rohan", got.Item)

	edits := f.txns.ofType(models.TxnUpdateEntry)
	require.Len(t, edits, 1)
	assert.Contains(t, string(edits[0].Details), "Dhwaja Rohan")

	// No-op edit writes nothing.
	_, err = f.svc.UpdateItem(ctx, entry.ID, "Dhwaja Rohan", staffActor)
	require.NoError(t, err)
	assert.Len(t, f.txns.ofType(models.TxnUpdateEntry), 1)
}
