package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/infrastructure/postgres/generated"
	"github.com/iho/entryledger/internal/usecase"
)

const idempotencyKeyConstraint = "transactions_idempotency_key_key"

var _ usecase.TransactionRepository = (*TransactionRepository)(nil)

type database interface {
	generated.DBTX
	pgxPool
}

// TransactionRepository implements usecase.TransactionRepository. A
// transaction row and its entry rows are written in one database transaction.
type TransactionRepository struct {
	queries   *generated.Queries
	txManager *TxManager
	retrier   *Retrier
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool, retrier *Retrier) *TransactionRepository {
	return newTransactionRepository(pool, retrier)
}

func newTransactionRepository(db database, retrier *Retrier) *TransactionRepository {
	if retrier == nil {
		retrier = NewRetrier()
	}

	return &TransactionRepository{
		queries:   generated.New(db),
		txManager: newTxManagerWithPool(db),
		retrier:   retrier,
	}
}

// Create stores txn and its entries atomically.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	err := r.retrier.Retry(ctx, func() error {
		return r.txManager.WithinTx(ctx, func(tx pgx.Tx) error {
			return insertTransaction(ctx, generated.New(tx), txn)
		})
	})

	if isUniqueViolation(err, idempotencyKeyConstraint) {
		return domain.ErrDuplicateIdempotencyKey
	}

	return err
}

func insertTransaction(ctx context.Context, q *generated.Queries, txn *domain.Transaction) error {
	err := q.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:             txn.ID,
		Kind:           string(txn.Kind),
		Description:    txn.Description,
		IdempotencyKey: txn.IdempotencyKey,
		CreatedAt:      txn.CreatedAt,
	})
	if err != nil {
		return err
	}

	for i, e := range txn.Entries {
		err := q.CreateEntry(ctx, generated.CreateEntryParams{
			TransactionID: txn.ID,
			Position:      int32(i),
			AccountID:     e.AccountID,
			Debit:         e.Debit,
			Credit:        e.Credit,
			Description:   e.Description,
		})
		if err != nil {
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	return nil
}

// GetByID retrieves a transaction with its entries.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return r.hydrateOne(ctx, row)
}

// GetByIdempotencyKey retrieves the transaction recorded under key.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return r.hydrateOne(ctx, row)
}

// SumEntriesForAccount returns Σdebit − Σcredit for the account.
func (r *TransactionRepository) SumEntriesForAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	raw, err := r.queries.SumEntriesForAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", raw, err)
	}

	return sum, nil
}

// ListByAccount lists transactions touching an account, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactionsByAccount(ctx, generated.ListTransactionsByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return r.hydrate(ctx, rows)
}

func (r *TransactionRepository) hydrateOne(ctx context.Context, row generated.Transaction) (*domain.Transaction, error) {
	txns, err := r.hydrate(ctx, []generated.Transaction{row})
	if err != nil {
		return nil, err
	}

	return txns[0], nil
}

func (r *TransactionRepository) hydrate(ctx context.Context, rows []generated.Transaction) ([]*domain.Transaction, error) {
	if len(rows) == 0 {
		return []*domain.Transaction{}, nil
	}

	ids := make([]string, 0, len(rows))
	byID := make(map[string]*domain.Transaction, len(rows))
	txns := make([]*domain.Transaction, 0, len(rows))

	for _, row := range rows {
		txn := rowToTransaction(row)
		ids = append(ids, txn.ID)
		byID[txn.ID] = txn
		txns = append(txns, txn)
	}

	entries, err := r.queries.ListEntriesByTransactionIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		txn, ok := byID[e.TransactionID]
		if !ok {
			continue
		}

		txn.Entries = append(txn.Entries, domain.Entry{
			AccountID:   e.AccountID,
			Debit:       e.Debit,
			Credit:      e.Credit,
			Description: e.Description,
		})
	}

	return txns, nil
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:             row.ID,
		Kind:           domain.TransactionKind(row.Kind),
		Description:    row.Description,
		IdempotencyKey: row.IdempotencyKey,
		CreatedAt:      row.CreatedAt,
	}
}
