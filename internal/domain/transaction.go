package domain

import (
	"sort"
	"time"
)

// TransactionKind records which operation produced a transaction.
type TransactionKind string

const (
	TransactionKindInitialBalance TransactionKind = "initial_balance"
	TransactionKindWithdrawal     TransactionKind = "withdrawal"
	TransactionKindTransfer       TransactionKind = "transfer"
)

// Transaction is an immutable double-entry record of one economic event.
type Transaction struct {
	ID             string          `json:"id"             bson:"_id"`
	Kind           TransactionKind `json:"kind"           bson:"kind"`
	Description    string          `json:"description"    bson:"description"`
	Entries        []Entry         `json:"entries"        bson:"entries"`
	IdempotencyKey string          `json:"idempotencyKey" bson:"idempotencyKey"`
	CreatedAt      time.Time       `json:"createdAt"      bson:"createdAt"`
}

// GlobalID returns the opaque reference exposed to callers.
func (t *Transaction) GlobalID() string {
	return EncodeGlobalID(KindTransaction, t.ID)
}

// AccountIDs returns the sorted set of accounts referenced by the entries.
func (t *Transaction) AccountIDs() []string {
	seen := make(map[string]bool, len(t.Entries))

	var ids []string
	for _, e := range t.Entries {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			ids = append(ids, e.AccountID)
		}
	}

	sort.Strings(ids)

	return ids
}

// ReferencesExactly reports whether the entries touch exactly the given set
// of accounts.
func (t *Transaction) ReferencesExactly(accountIDs ...string) bool {
	want := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		want[id] = true
	}

	got := t.AccountIDs()
	if len(got) != len(want) {
		return false
	}

	for _, id := range got {
		if !want[id] {
			return false
		}
	}

	return true
}

// Totals returns the sums of debits and credits across all entries.
func (t *Transaction) Totals() (debit, credit int64) {
	for _, e := range t.Entries {
		debit += e.Debit
		credit += e.Credit
	}

	return debit, credit
}

// Validate checks the entries of the transaction against its kind.
func (t *Transaction) Validate() error {
	if len(t.Entries) == 0 || t.IdempotencyKey == "" {
		return ErrInvalidEntry
	}

	for _, e := range t.Entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	debit, credit := t.Totals()

	switch t.Kind {
	case TransactionKindInitialBalance:
		if len(t.Entries) != 1 || credit != 0 {
			return ErrInvalidEntry
		}
	case TransactionKindWithdrawal:
		if len(t.Entries) != 1 || debit != 0 {
			return ErrInvalidEntry
		}
	case TransactionKindTransfer:
		if len(t.Entries) != 2 || len(t.AccountIDs()) != 2 || debit != credit {
			return ErrInvalidEntry
		}
	default:
		return ErrInvalidEntry
	}

	return nil
}

// TransactionRef is the result of a money-movement mutation.
type TransactionRef struct {
	ID string
	// Replayed is set when the reference points at a transaction recorded by
	// an earlier request with the same idempotency key.
	Replayed bool
}
