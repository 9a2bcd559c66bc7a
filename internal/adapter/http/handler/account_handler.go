package handler

import (
	"context"
	"net/http"

	"github.com/iho/entryledger/internal/adapter/http/dto"
	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.AccountRef, error)
	RefreshAccountBalance(ctx context.Context, req domain.RefreshBalanceRequest) (*domain.AccountRef, error)
	GetAccount(ctx context.Context, globalID string) (*domain.Account, error)
	GetLiveBalance(ctx context.Context, globalID string) (int64, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	ref, err := h.accountUC.CreateAccount(r.Context(), req.ToDomain())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RefResponse{ID: ref.ID})
}

// Get retrieves an account by ID together with its live balance.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	balance, err := h.accountUC.GetLiveBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := dto.AccountFromDomain(account)
	resp.Balance = &balance

	writeJSON(w, http.StatusOK, resp)
}

// Refresh recomputes the cached balance of an account.
func (h *AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ref, err := h.accountUC.RefreshAccountBalance(r.Context(), domain.RefreshBalanceRequest{
		SourceID: pathID(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RefResponse{ID: ref.ID})
}

// List lists accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}
