package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/iho/entryledger/internal/domain"
)

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// BalanceCalculator derives account balances from the entries in the store.
type BalanceCalculator struct {
	txnRepo TransactionRepository
}

// NewBalanceCalculator creates a new BalanceCalculator.
func NewBalanceCalculator(txnRepo TransactionRepository) *BalanceCalculator {
	return &BalanceCalculator{txnRepo: txnRepo}
}

// ComputeBalance returns Σdebit − Σcredit over every entry of the account.
// An account without entries has a balance of zero.
func (c *BalanceCalculator) ComputeBalance(ctx context.Context, accountID string) (int64, error) {
	sum, err := c.txnRepo.SumEntriesForAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("sum entries of account %s: %w", accountID, err)
	}

	return toCents(sum)
}

func toCents(sum decimal.Decimal) (int64, error) {
	if !sum.IsInteger() || sum.GreaterThan(maxCents) || sum.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %s", domain.ErrMalformedBalance, sum.String())
	}

	return sum.IntPart(), nil
}
