package usecase

import (
	"context"
	"errors"

	"github.com/iho/entryledger/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when stored transactions break the
	// double-entry invariants.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: transactions violate double-entry invariants")
)

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// CheckConsistency scans every transaction. Deposits and withdrawals move
// money across the ledger boundary, so the sum of all balances is not zero;
// instead every transfer must balance and every entry must be one-sided.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (domain.LedgerConsistency, error) {
	report, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return domain.LedgerConsistency{}, err
	}

	if !report.Consistent() {
		return report, ErrInconsistentLedger
	}

	return report, nil
}
