package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/infrastructure/postgres/generated"
	"github.com/iho/entryledger/internal/usecase"
)

var _ usecase.AccountRepository = (*AccountRepository)(nil)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries   *generated.Queries
	txManager *TxManager
	retrier   *Retrier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool, retrier *Retrier) *AccountRepository {
	return newAccountRepository(pool, retrier)
}

func newAccountRepository(db database, retrier *Retrier) *AccountRepository {
	if retrier == nil {
		retrier = NewRetrier()
	}

	return &AccountRepository{
		queries:   generated.New(db),
		txManager: newTxManagerWithPool(db),
		retrier:   retrier,
	}
}

// Create creates a new account together with its opening transaction, if
// any, in one database transaction.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account, opening *domain.Transaction) error {
	err := r.retrier.Retry(ctx, func() error {
		return r.txManager.WithinTx(ctx, func(tx pgx.Tx) error {
			q := generated.New(tx)

			err := q.CreateAccount(ctx, generated.CreateAccountParams{
				ID:              account.ID,
				Name:            account.Name,
				ReadonlyBalance: account.ReadonlyBalance,
				CreatedAt:       account.CreatedAt,
				UpdatedAt:       account.UpdatedAt,
			})
			if err != nil {
				return err
			}

			if opening == nil {
				return nil
			}

			return insertTransaction(ctx, q, opening)
		})
	})

	if isUniqueViolation(err, idempotencyKeyConstraint) {
		return domain.ErrDuplicateIdempotencyKey
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// UpdateReadonlyBalance overwrites the cached balance of an account.
func (r *AccountRepository) UpdateReadonlyBalance(ctx context.Context, id string, balance int64, updatedAt time.Time) error {
	n, err := r.queries.UpdateAccountReadonlyBalance(ctx, generated.UpdateAccountReadonlyBalanceParams{
		ID:              id,
		ReadonlyBalance: balance,
		UpdatedAt:       updatedAt,
	})
	if err != nil {
		return err
	}

	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:              row.ID,
		Name:            row.Name,
		ReadonlyBalance: row.ReadonlyBalance,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}
