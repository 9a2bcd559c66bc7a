package dto

import (
	"time"

	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

// AccountResponse represents an account in API responses. IDs are global IDs.
type AccountResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	ReadonlyBalance int64     `json:"readonlyBalance"`
	Balance         *int64    `json:"balance,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:              a.GlobalID(),
		Name:            a.Name,
		ReadonlyBalance: a.ReadonlyBalance,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// EntryResponse represents one line of a transaction.
type EntryResponse struct {
	AccountID   string `json:"accountId"`
	Debit       int64  `json:"debit"`
	Credit      int64  `json:"credit"`
	Description string `json:"description"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	Description    string          `json:"description"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Entries        []EntryResponse `json:"entries"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	entries := make([]EntryResponse, len(t.Entries))
	for i, e := range t.Entries {
		entries[i] = EntryResponse{
			AccountID:   domain.EncodeGlobalID(domain.KindAccount, e.AccountID),
			Debit:       e.Debit,
			Credit:      e.Credit,
			Description: e.Description,
		}
	}

	return &TransactionResponse{
		ID:             t.GlobalID(),
		Kind:           string(t.Kind),
		Description:    t.Description,
		IdempotencyKey: t.IdempotencyKey,
		Entries:        entries,
		CreatedAt:      t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse represents a page of transactions.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Total        int64                  `json:"total"`
}

// RefResponse is returned by mutations.
type RefResponse struct {
	ID       string `json:"id"`
	Replayed bool   `json:"replayed,omitempty"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error      string                  `json:"error"`
	Message    string                  `json:"message,omitempty"`
	Violations []domain.FieldViolation `json:"violations,omitempty"`
}

// ReconciliationResponse reports cached against live balance for one account.
type ReconciliationResponse struct {
	AccountID         string    `json:"accountId"`
	RecordedBalance   int64     `json:"recordedBalance"`
	CalculatedBalance int64     `json:"calculatedBalance"`
	Difference        int64     `json:"difference"`
	IsReconciled      bool      `json:"isReconciled"`
	LastChecked       time.Time `json:"lastChecked"`
}

// ReconciliationFromResult converts a reconciliation result.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ReconciliationReportResponse represents a full reconciliation report.
type ReconciliationReportResponse struct {
	TotalAccounts      int                       `json:"totalAccounts"`
	ReconciledAccounts int                       `json:"reconciledAccounts"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	Ledger             domain.LedgerConsistency  `json:"ledger"`
	LedgerConsistent   bool                      `json:"ledgerConsistent"`
	CheckedAt          time.Time                 `json:"checkedAt"`
}

// ReportFromUseCase converts a reconciliation report.
func ReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromResult(d)
	}

	return &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      discrepancies,
		Ledger:             r.Ledger,
		LedgerConsistent:   r.LedgerConsistent,
		CheckedAt:          r.CheckedAt,
	}
}

// ConsistencyResponse reports the result of a ledger scan.
type ConsistencyResponse struct {
	Status     string                   `json:"status"`
	Consistent bool                     `json:"consistent"`
	Ledger     domain.LedgerConsistency `json:"ledger"`
}
