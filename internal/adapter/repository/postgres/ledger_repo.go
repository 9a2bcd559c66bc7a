package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/infrastructure/postgres/generated"
	"github.com/iho/entryledger/internal/usecase"
)

var _ usecase.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db generated.DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: pool}
}

// CheckConsistency checks the consistency of the ledger.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (domain.LedgerConsistency, error) {
	q := generated.New(r.db)
	result, err := q.CheckLedgerConsistency(ctx)
	if err != nil {
		return domain.LedgerConsistency{}, err
	}

	return domain.LedgerConsistency{
		Transactions:        result.TransactionCount,
		Entries:             result.EntryCount,
		UnbalancedTransfers: result.UnbalancedTransfers,
		InvalidEntries:      result.InvalidEntries,
	}, nil
}
