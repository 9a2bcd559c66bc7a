package domain

import "errors"

// Error categories. Every error returned by the engine matches exactly one of
// these with errors.Is.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInvalidReference  = errors.New("invalid reference")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInternal          = errors.New("internal server error")
)

var (
	// Account errors
	ErrAccountNotFound     = categorized(ErrNotFound, "account not found")
	ErrSourceNotFound      = categorized(ErrNotFound, "source account not found")
	ErrDestinationNotFound = categorized(ErrNotFound, "destination account not found")

	// Transaction errors
	ErrTransactionNotFound  = categorized(ErrNotFound, "transaction not found")
	ErrSameAccount          = categorized(ErrConflict, "source and destination accounts cannot be the same")
	ErrIdempotencyKeyReused = categorized(ErrConflict, "transaction already exists with this idempotency key")

	// Reference errors
	ErrInvalidIDType = categorized(ErrInvalidReference, "invalid ID type")

	// Integrity errors
	ErrMalformedBalance = categorized(ErrInternal, "balance aggregate could not be parsed")
	ErrInvalidEntry     = categorized(ErrInternal, "transaction entries are inconsistent")
)

// ErrDuplicateIdempotencyKey is returned by stores when an insert collides
// with an existing idempotency key. Use cases never surface it directly.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

type categoryError struct {
	category error
	msg      string
}

func categorized(category error, msg string) error {
	return &categoryError{category: category, msg: msg}
}

func (e *categoryError) Error() string { return e.msg }

func (e *categoryError) Unwrap() error { return e.category }
