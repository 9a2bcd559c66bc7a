package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/entryledger/internal/domain"
)

// ReconciliationUseCase compares cached account balances with the balances
// derived from entries.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	calculator  *BalanceCalculator
	ledger      *LedgerUseCase
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	ledgerRepo LedgerRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		calculator:  NewBalanceCalculator(txnRepo),
		ledger:      NewLedgerUseCase(ledgerRepo),
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID         string
	RecordedBalance   int64
	CalculatedBalance int64
	Difference        int64
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount compares the readonly balance of one account with its
// live balance.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, globalID string) (*ReconciliationResult, error) {
	accountID, err := domain.DecodeAs(globalID, domain.KindAccount)
	if err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return uc.reconcile(ctx, account)
}

func (uc *ReconciliationUseCase) reconcile(ctx context.Context, account *domain.Account) (*ReconciliationResult, error) {
	live, err := uc.calculator.ComputeBalance(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	return &ReconciliationResult{
		AccountID:         account.GlobalID(),
		RecordedBalance:   account.ReadonlyBalance,
		CalculatedBalance: live,
		Difference:        account.ReadonlyBalance - live,
		IsReconciled:      !account.IsStale(live),
		LastChecked:       time.Now().UTC(),
	}, nil
}

// ReconcileAllAccounts reconciles all accounts in the system
func (uc *ReconciliationUseCase) ReconcileAllAccounts(ctx context.Context) ([]*ReconciliationResult, error) {
	var results []*ReconciliationResult

	for offset := 0; ; offset += ReconciliationPageSize {
		accounts, err := uc.accountRepo.List(ctx, ReconciliationPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			result, err := uc.reconcile(ctx, account)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
			}
			results = append(results, result)
		}

		if len(accounts) < ReconciliationPageSize {
			return results, nil
		}
	}
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	Ledger             domain.LedgerConsistency
	LedgerConsistent   bool
	CheckedAt          time.Time
}

// GenerateReconciliationReport generates a comprehensive reconciliation report.
// Stale readonly balances are expected between refreshes and are reported,
// not repaired.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	ledger, err := uc.ledger.CheckConsistency(ctx)
	if err != nil && !errors.Is(err, ErrInconsistentLedger) {
		return nil, err
	}

	report := &ReconciliationReport{
		TotalAccounts:    len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		Ledger:           ledger,
		LedgerConsistent: err == nil,
		CheckedAt:        time.Now().UTC(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
