package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/entryledger/internal/domain"
)

// DecisionKind is the classification of an idempotency key.
type DecisionKind int

const (
	// DecisionNew means no transaction holds the key yet.
	DecisionNew DecisionKind = iota
	// DecisionReplay means the key belongs to a transaction over the same accounts.
	DecisionReplay
	// DecisionConflict means the key belongs to a transaction over other accounts.
	DecisionConflict
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionNew:
		return "new"
	case DecisionReplay:
		return "replay"
	case DecisionConflict:
		return "conflict"
	default:
		return fmt.Sprintf("DecisionKind(%d)", int(k))
	}
}

// IdempotencyDecision is the result of classifying a key.
type IdempotencyDecision struct {
	Kind DecisionKind
	// TransactionID is the local id of the prior transaction on replay.
	TransactionID string
}

// IdempotencyGuard decides whether a request is new, a replay or a conflict.
//
// The decision is made twice for a new request: once before any write, and
// again through Reconcile when the store rejects the insert because a
// concurrent request claimed the key first. The store's unique constraint is
// what actually serializes the two requests.
type IdempotencyGuard struct {
	txnRepo TransactionRepository
}

// NewIdempotencyGuard creates a new IdempotencyGuard.
func NewIdempotencyGuard(txnRepo TransactionRepository) *IdempotencyGuard {
	return &IdempotencyGuard{txnRepo: txnRepo}
}

// Classify looks up the key and compares the prior transaction's accounts
// with participants.
func (g *IdempotencyGuard) Classify(ctx context.Context, key string, participants []string) (IdempotencyDecision, error) {
	prior, err := g.txnRepo.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return IdempotencyDecision{Kind: DecisionNew}, nil
	}

	if err != nil {
		return IdempotencyDecision{}, fmt.Errorf("look up idempotency key: %w", err)
	}

	return decide(prior, participants), nil
}

// Reconcile classifies a key after the store reported it as taken. It never
// returns DecisionNew.
func (g *IdempotencyGuard) Reconcile(ctx context.Context, key string, participants []string) (IdempotencyDecision, error) {
	prior, err := g.txnRepo.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return IdempotencyDecision{}, fmt.Errorf("%w: idempotency key %s reported as duplicate but not found", domain.ErrInternal, key)
	}

	if err != nil {
		return IdempotencyDecision{}, fmt.Errorf("reload idempotency key: %w", err)
	}

	return decide(prior, participants), nil
}

func decide(prior *domain.Transaction, participants []string) IdempotencyDecision {
	if prior.ReferencesExactly(participants...) {
		return IdempotencyDecision{Kind: DecisionReplay, TransactionID: prior.ID}
	}

	return IdempotencyDecision{Kind: DecisionConflict}
}
