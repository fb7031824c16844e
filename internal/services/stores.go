package services

import (
	"context"
	"time"

	"daan-backend/internal/models"
	"daan-backend/internal/receipt"
)

// Store interfaces consumed by the services. The pgx repositories
// implement them; tests substitute in-memory fakes.

type EntryStore interface {
	Create(ctx context.Context, e *models.Entry) error
	Get(ctx context.Context, id int) (*models.Entry, error)
	Update(ctx context.Context, e *models.Entry) error
	List(ctx context.Context, kind string) ([]*models.Entry, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Entry, error)
	ListDeleted(ctx context.Context) ([]*models.Entry, error)
	Summary(ctx context.Context, kind string) (*models.EntrySummary, error)
}

type AdvanceStore interface {
	CreateDeposit(ctx context.Context, a *models.AdvancePayment) error
	CreateUsage(ctx context.Context, u *models.AdvanceUsage) error
	SumDeposits(ctx context.Context, userID int) (int64, error)
	SumUsages(ctx context.Context, userID int) (int64, error)
	ListDeposits(ctx context.Context, userID int) ([]*models.AdvancePayment, error)
	ListUsages(ctx context.Context, userID int) ([]*models.AdvanceUsage, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	List(ctx context.Context, role string) ([]*models.User, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) error
	List(ctx context.Context, f models.TransactionFilter) ([]*models.Transaction, error)
}

// ReceiptAllocator issues the next free block-allocated number for a
// stream. Satisfied by receipt.Allocator.
type ReceiptAllocator interface {
	Allocate(ctx context.Context, stream receipt.Stream, date time.Time) (string, error)
}
