package handler

import (
	"context"
	"net/http"

	"github.com/iho/entryledger/internal/adapter/http/dto"
	"github.com/iho/entryledger/internal/adapter/http/middleware"
	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	Withdraw(ctx context.Context, req domain.WithdrawRequest) (*domain.TransactionRef, error)
	Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransactionRef, error)
	GetTransaction(ctx context.Context, globalID string) (*domain.Transaction, error)
	ListTransactionsByAccount(ctx context.Context, input usecase.ListTransactionsByAccountInput) ([]*domain.Transaction, error)
}

// TransactionHandler handles money movement HTTP requests.
type TransactionHandler struct {
	transactionUC TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionUC TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionUC: transactionUC}
}

// Withdraw removes money from an account.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	key, _ := middleware.IdempotencyKeyFromContext(r.Context())

	ref, err := h.transactionUC.Withdraw(r.Context(), req.ToDomain(key))
	writeRef(w, ref, err)
}

// Transfer moves money between two accounts.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	key, _ := middleware.IdempotencyKeyFromContext(r.Context())

	ref, err := h.transactionUC.Transfer(r.Context(), req.ToDomain(key))
	writeRef(w, ref, err)
}

// writeRef answers 201 for a new transaction and 200 for a replay.
func writeRef(w http.ResponseWriter, ref *domain.TransactionRef, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if ref.Replayed {
		w.Header().Set("X-Idempotency-Replay", "true")
		status = http.StatusOK
	}

	writeJSON(w, status, dto.RefResponse{ID: ref.ID, Replayed: ref.Replayed})
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.transactionUC.GetTransaction(r.Context(), pathID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// ListByAccount lists the transactions of an account, newest first.
func (h *TransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	txns, err := h.transactionUC.ListTransactionsByAccount(r.Context(), usecase.ListTransactionsByAccountInput{
		AccountID: pathID(r),
		Limit:     parseIntQuery(r, "limit", 20),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(txns),
		Total:        int64(len(txns)),
	})
}
