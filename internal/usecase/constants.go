package usecase

import (
	"context"
	"time"
)

const (
	// DefaultOperationTimeout bounds a single money-movement operation,
	// including the account lease.
	DefaultOperationTimeout = 10 * time.Second

	// ReconciliationPageSize is the number of accounts loaded per page when
	// building a reconciliation report.
	ReconciliationPageSize = 100
)

// Operation names reported to the MetricsRecorder.
const (
	OperationCreateAccount  = "create_account"
	OperationWithdraw       = "withdraw"
	OperationTransfer       = "transfer"
	OperationRefreshBalance = "refresh_balance"
)

// Operation outcomes reported to the MetricsRecorder.
const (
	OutcomeCreated           = "created"
	OutcomeReplayed          = "replayed"
	OutcomeConflict          = "conflict"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeNotFound          = "not_found"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
	OutcomeRefreshed         = "refreshed"
)

// NoopLocker runs the critical section without any lease.
type NoopLocker struct{}

func (NoopLocker) WithAccountLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NoopRecorder discards operation outcomes.
type NoopRecorder struct{}

func (NoopRecorder) ObserveOperation(string, string, time.Duration) {}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }
