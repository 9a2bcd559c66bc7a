// Package memory provides in-process implementations of the repository ports.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

// Store holds accounts and transactions in memory. The idempotency key index
// plays the role of the unique constraint of a database store.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	accountOrder []string
	transactions map[string]*domain.Transaction
	txnOrder     []string
	byKey        map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		byKey:        make(map[string]string),
	}
}

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct{ store *Store }

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct{ store *Store }

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct{ store *Store }

// NewAccountRepository creates an account repository backed by store.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// NewTransactionRepository creates a transaction repository backed by store.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// NewLedgerRepository creates a ledger repository backed by store.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// Create stores the account and, when opening is not nil, its initial
// balance transaction. Either both are stored or neither is.
func (r *AccountRepository) Create(_ context.Context, account *domain.Account, opening *domain.Transaction) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if opening != nil {
		if _, taken := s.byKey[opening.IdempotencyKey]; taken {
			return domain.ErrDuplicateIdempotencyKey
		}
	}

	acc := *account
	s.accounts[acc.ID] = &acc
	s.accountOrder = append(s.accountOrder, acc.ID)

	if opening != nil {
		s.insertTransaction(opening)
	}

	return nil
}

// GetByID returns a copy of the account.
func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	out := *acc

	return &out, nil
}

// UpdateReadonlyBalance overwrites the cached balance of an account.
func (r *AccountRepository) UpdateReadonlyBalance(_ context.Context, id string, balance int64, updatedAt time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	acc.ReadonlyBalance = balance
	acc.UpdatedAt = updatedAt

	return nil
}

// List lists accounts in creation order.
func (r *AccountRepository) List(_ context.Context, limit, offset int) ([]*domain.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Account, 0, limit)
	for _, id := range page(s.accountOrder, limit, offset) {
		acc := *s.accounts[id]
		out = append(out, &acc)
	}

	return out, nil
}

// Create stores a copy of txn unless its idempotency key is taken.
func (r *TransactionRepository) Create(_ context.Context, txn *domain.Transaction) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byKey[txn.IdempotencyKey]; taken {
		return domain.ErrDuplicateIdempotencyKey
	}

	s.insertTransaction(txn)

	return nil
}

// insertTransaction requires s.mu to be held for writing.
func (s *Store) insertTransaction(txn *domain.Transaction) {
	stored := cloneTransaction(txn)
	s.transactions[stored.ID] = stored
	s.txnOrder = append(s.txnOrder, stored.ID)
	s.byKey[stored.IdempotencyKey] = stored.ID
}

// GetByID returns a copy of the transaction.
func (r *TransactionRepository) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	return cloneTransaction(txn), nil
}

// GetByIdempotencyKey returns the transaction recorded under key.
func (r *TransactionRepository) GetByIdempotencyKey(_ context.Context, key string) (*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	return cloneTransaction(s.transactions[id]), nil
}

// SumEntriesForAccount returns Σdebit − Σcredit for the account.
func (r *TransactionRepository) SumEntriesForAccount(_ context.Context, accountID string) (decimal.Decimal, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	for _, txn := range s.transactions {
		for _, e := range txn.Entries {
			if e.AccountID == accountID {
				sum += e.Net()
			}
		}
	}

	return decimal.NewFromInt(sum), nil
}

// ListByAccount returns the transactions touching accountID, newest first.
func (r *TransactionRepository) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for i := len(s.txnOrder) - 1; i >= 0; i-- {
		txn := s.transactions[s.txnOrder[i]]
		for _, e := range txn.Entries {
			if e.AccountID == accountID {
				ids = append(ids, txn.ID)
				break
			}
		}
	}

	out := make([]*domain.Transaction, 0, limit)
	for _, id := range page(ids, limit, offset) {
		out = append(out, cloneTransaction(s.transactions[id]))
	}

	return out, nil
}

// CheckConsistency scans every stored transaction.
func (r *LedgerRepository) CheckConsistency(_ context.Context) (domain.LedgerConsistency, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var report domain.LedgerConsistency
	for _, txn := range s.transactions {
		report.Transactions++

		for _, e := range txn.Entries {
			report.Entries++
			if e.Validate() != nil {
				report.InvalidEntries++
			}
		}

		if txn.Kind == domain.TransactionKindTransfer {
			if debit, credit := txn.Totals(); debit != credit {
				report.UnbalancedTransfers++
			}
		}
	}

	return report, nil
}

func page(ids []string, limit, offset int) []string {
	if offset >= len(ids) {
		return nil
	}

	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	return ids[offset:end]
}

func cloneTransaction(txn *domain.Transaction) *domain.Transaction {
	out := *txn
	out.Entries = append([]domain.Entry(nil), txn.Entries...)

	return &out
}

var (
	_ usecase.AccountRepository     = (*AccountRepository)(nil)
	_ usecase.TransactionRepository = (*TransactionRepository)(nil)
	_ usecase.LedgerRepository      = (*LedgerRepository)(nil)
)
