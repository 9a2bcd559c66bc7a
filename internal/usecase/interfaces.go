package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/entryledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	// Create stores the account and, when opening is not nil, its initial
	// balance transaction atomically.
	Create(ctx context.Context, account *domain.Account, opening *domain.Transaction) error
	// GetByID returns domain.ErrAccountNotFound when no account has the id.
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	UpdateReadonlyBalance(ctx context.Context, id string, balance int64, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// TransactionRepository defines data access for transactions and their entries.
type TransactionRepository interface {
	// Create stores the transaction and all of its entries atomically. It
	// returns domain.ErrDuplicateIdempotencyKey when the key is already taken.
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	// GetByIdempotencyKey returns domain.ErrTransactionNotFound when the key is unused.
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	// SumEntriesForAccount returns Σdebit − Σcredit over every entry of the
	// account as the raw store aggregate.
	SumEntriesForAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error)
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	CheckConsistency(ctx context.Context) (domain.LedgerConsistency, error)
}

// EventPublisher delivers a serialized document to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// AccountLocker serializes money movement out of a single account.
type AccountLocker interface {
	WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error
}

// MetricsRecorder receives the outcome of every engine operation.
type MetricsRecorder interface {
	ObserveOperation(operation, outcome string, duration time.Duration)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
