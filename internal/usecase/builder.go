package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iho/entryledger/internal/domain"
)

// TransactionBuilder turns a validated money movement into a transaction.
// Account names are copied into entry descriptions at build time.
type TransactionBuilder struct {
	idGen IDGenerator
	now   func() time.Time
}

// NewTransactionBuilder creates a new TransactionBuilder.
func NewTransactionBuilder(idGen IDGenerator) *TransactionBuilder {
	return &TransactionBuilder{
		idGen: idGen,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// InitialBalance debits the opening amount into a new account under a fresh key.
func (b *TransactionBuilder) InitialBalance(account *domain.Account, amount int64) (*domain.Transaction, error) {
	return b.build(domain.TransactionKindInitialBalance, "Initial balance", uuid.NewString(), []domain.Entry{
		{AccountID: account.ID, Debit: amount, Description: "Initial balance"},
	})
}

// Withdrawal credits amount out of the source account.
func (b *TransactionBuilder) Withdrawal(source *domain.Account, amount int64, key string) (*domain.Transaction, error) {
	return b.build(domain.TransactionKindWithdrawal, "Withdrawal", key, []domain.Entry{
		{AccountID: source.ID, Credit: amount, Description: "Withdrawal from " + source.Name},
	})
}

// Transfer credits the source and debits the destination by the same amount.
func (b *TransactionBuilder) Transfer(source, destination *domain.Account, amount int64, key string) (*domain.Transaction, error) {
	return b.build(domain.TransactionKindTransfer, "Transfer", key, []domain.Entry{
		{AccountID: source.ID, Credit: amount, Description: "Transfer to " + destination.Name},
		{AccountID: destination.ID, Debit: amount, Description: "Transfer from " + source.Name},
	})
}

func (b *TransactionBuilder) build(kind domain.TransactionKind, description, key string, entries []domain.Entry) (*domain.Transaction, error) {
	txn := &domain.Transaction{
		ID:             b.idGen.Generate(),
		Kind:           kind,
		Description:    description,
		Entries:        entries,
		IdempotencyKey: key,
		CreatedAt:      b.now(),
	}

	if err := txn.Validate(); err != nil {
		return nil, fmt.Errorf("build %s transaction: %w", kind, err)
	}

	return txn, nil
}
