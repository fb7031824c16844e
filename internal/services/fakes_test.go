package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"daan-backend/internal/models"
	"daan-backend/internal/receipt"
)

// In-memory stores backing the service tests. Get/List hand out copies
// so the re-read concurrency guard sees committed state, not shared
// pointers.

type memEntryStore struct {
	mu      sync.Mutex
	seq     int
	entries map[int]*models.Entry
}

func newMemEntryStore() *memEntryStore {
	return &memEntryStore{entries: map[int]*models.Entry{}}
}

func cloneEntry(e *models.Entry) *models.Entry {
	c := *e
	c.Payments = append([]models.PaymentRecord(nil), e.Payments...)
	return &c
}

func (s *memEntryStore) Create(ctx context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.ID = s.seq
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *memEntryStore) Get(ctx context.Context, id int) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: entry %d", ErrNotFound, id)
	}
	return cloneEntry(e), nil
}

// Update rejects a write built on a snapshot another writer has since
// replaced. UpdatedAt doubles as the row version: it is bumped on every
// accepted write, so a racing loser surfaces as ErrConcurrentUpdate and
// retries through the service instead of silently dropping the winner's
// payment.
func (s *memEntryStore) Update(ctx context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entries[e.ID]
	if !ok {
		return fmt.Errorf("entry %d not found", e.ID)
	}
	if !e.UpdatedAt.Equal(stored.UpdatedAt) {
		return fmt.Errorf("%w: entry %d was modified", ErrConcurrentUpdate, e.ID)
	}
	c := cloneEntry(e)
	c.UpdatedAt = stored.UpdatedAt.Add(time.Nanosecond)
	s.entries[e.ID] = c
	return nil
}

func (s *memEntryStore) List(ctx context.Context, kind string) ([]*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Entry
	for _, e := range s.entries {
		if e.EntryStatus != models.EntryStatusActive {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

func (s *memEntryStore) ListByUser(ctx context.Context, userID int) ([]*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Entry
	for _, e := range s.entries {
		if e.UserID == userID && e.EntryStatus == models.EntryStatusActive {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (s *memEntryStore) ListDeleted(ctx context.Context) ([]*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Entry
	for _, e := range s.entries {
		if e.EntryStatus == models.EntryStatusDeleted {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (s *memEntryStore) Summary(ctx context.Context, kind string) (*models.EntrySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := &models.EntrySummary{Kind: kind}
	for _, e := range s.entries {
		if e.Kind != kind || e.EntryStatus != models.EntryStatusActive {
			continue
		}
		sum.EntryCount++
		sum.TotalAmount += e.TotalAmount
		sum.TotalReceived += e.ReceivedAmount
		sum.TotalPending += e.PendingAmount
	}
	return sum, nil
}

type memAdvanceStore struct {
	mu       sync.Mutex
	seq      int
	deposits []*models.AdvancePayment
	usages   []*models.AdvanceUsage
}

func newMemAdvanceStore() *memAdvanceStore { return &memAdvanceStore{} }

func (s *memAdvanceStore) CreateDeposit(ctx context.Context, a *models.AdvancePayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	a.ID = s.seq
	c := *a
	s.deposits = append(s.deposits, &c)
	return nil
}

func (s *memAdvanceStore) CreateUsage(ctx context.Context, u *models.AdvanceUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u.ID = s.seq
	c := *u
	s.usages = append(s.usages, &c)
	return nil
}

func (s *memAdvanceStore) SumDeposits(ctx context.Context, userID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, d := range s.deposits {
		if d.UserID == userID {
			total += d.Amount
		}
	}
	return total, nil
}

func (s *memAdvanceStore) SumUsages(ctx context.Context, userID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, u := range s.usages {
		if u.UserID == userID {
			total += u.Amount
		}
	}
	return total, nil
}

func (s *memAdvanceStore) ListDeposits(ctx context.Context, userID int) ([]*models.AdvancePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AdvancePayment
	for _, d := range s.deposits {
		if userID == 0 || d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memAdvanceStore) ListUsages(ctx context.Context, userID int) ([]*models.AdvanceUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AdvanceUsage
	for _, u := range s.usages {
		if userID == 0 || u.UserID == userID {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

type memTxnStore struct {
	mu   sync.Mutex
	seq  int
	rows []*models.Transaction
}

func newMemTxnStore() *memTxnStore { return &memTxnStore{} }

func (s *memTxnStore) Create(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t.ID = s.seq
	c := *t
	s.rows = append(s.rows, &c)
	return nil
}

func (s *memTxnStore) List(ctx context.Context, f models.TransactionFilter) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Transaction
	for _, t := range s.rows {
		if f.EntryID != nil && (t.EntryID == nil || *t.EntryID != *f.EntryID) {
			continue
		}
		if f.UserID != nil && t.UserID != *f.UserID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

// ofType filters the captured rows by transaction type.
func (s *memTxnStore) ofType(txnType string) []*models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Transaction
	for _, t := range s.rows {
		if t.Type == txnType {
			out = append(out, t)
		}
	}
	return out
}

type memUserStore struct {
	mu    sync.Mutex
	seq   int
	users map[int]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[int]*models.User{}}
}

func (s *memUserStore) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u.ID = s.seq
	u.IsActive = true
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *memUserStore) Get(ctx context.Context, id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	c := *u
	return &c, nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
}

func (s *memUserStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotFound, phone)
}

func (s *memUserStore) List(ctx context.Context, role string) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.User
	for _, u := range s.users {
		if role == "" || u.Role == role {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

// memUsedSource feeds the real allocator from the in-memory stores, the
// same scan the repository layer runs against Postgres.
type memUsedSource struct {
	entries  *memEntryStore
	advances *memAdvanceStore
	prefix   string
	failNext bool
}

func (s *memUsedSource) UsedReceiptNumbers(ctx context.Context, prefix string, year int) (map[int]bool, error) {
	if s.failNext {
		s.failNext = false
		return nil, fmt.Errorf("scan failed")
	}
	used := map[int]bool{}
	s.entries.mu.Lock()
	for _, e := range s.entries.entries {
		for _, p := range e.Payments {
			if y, n, ok := receipt.Parse(prefix, p.ReceiptNo); ok && y == year {
				used[n] = true
			}
		}
	}
	s.entries.mu.Unlock()
	s.advances.mu.Lock()
	for _, d := range s.advances.deposits {
		if y, n, ok := receipt.Parse(prefix, d.ReceiptNo); ok && y == year {
			used[n] = true
		}
	}
	s.advances.mu.Unlock()
	return used, nil
}

// conflictEntryStore injects a mutation between the first read and the
// re-read, simulating a payment landing from another request.
type conflictEntryStore struct {
	*memEntryStore
	mu       sync.Mutex
	gets     int
	onSecond func(*memEntryStore)
}

func (s *conflictEntryStore) Get(ctx context.Context, id int) (*models.Entry, error) {
	s.mu.Lock()
	s.gets++
	if s.gets == 2 && s.onSecond != nil {
		s.onSecond(s.memEntryStore)
	}
	s.mu.Unlock()
	return s.memEntryStore.Get(ctx, id)
}
