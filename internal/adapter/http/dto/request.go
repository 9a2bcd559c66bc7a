package dto

import (
	"github.com/iho/entryledger/internal/domain"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name           string `json:"name"`
	InitialBalance int64  `json:"initialBalance"`
}

// ToDomain converts to the engine request.
func (r *CreateAccountRequest) ToDomain() domain.CreateAccountRequest {
	return domain.CreateAccountRequest{
		Name:           r.Name,
		InitialBalance: r.InitialBalance,
	}
}

// WithdrawRequest represents a request to withdraw money from an account.
// The idempotency key may also be sent in the X-Idempotency-Key header.
type WithdrawRequest struct {
	SourceID       string `json:"sourceId"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// ToDomain converts to the engine request. A non-empty header key wins over
// the body key.
func (r *WithdrawRequest) ToDomain(headerKey string) domain.WithdrawRequest {
	return domain.WithdrawRequest{
		SourceID:       r.SourceID,
		Amount:         r.Amount,
		IdempotencyKey: pickKey(headerKey, r.IdempotencyKey),
	}
}

// TransferRequest represents a request to move money between accounts.
type TransferRequest struct {
	SourceID       string `json:"sourceId"`
	DestinationID  string `json:"destinationId"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// ToDomain converts to the engine request.
func (r *TransferRequest) ToDomain(headerKey string) domain.TransferRequest {
	return domain.TransferRequest{
		SourceID:       r.SourceID,
		DestinationID:  r.DestinationID,
		Amount:         r.Amount,
		IdempotencyKey: pickKey(headerKey, r.IdempotencyKey),
	}
}

func pickKey(header, body string) string {
	if header != "" {
		return header
	}
	return body
}
