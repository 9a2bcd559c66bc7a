package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/entryledger/internal/domain"
)

// publish serializes doc and hands it to the publisher. The operation has
// already committed, so failures are logged and never returned.
func publish(ctx context.Context, publisher EventPublisher, logger zerolog.Logger, topic string, doc any) {
	payload, err := json.Marshal(doc)
	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("failed to encode event")
		return
	}

	if err := publisher.Publish(context.WithoutCancel(ctx), topic, payload); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}

// outcomeOf maps an operation result onto a metrics outcome label.
func outcomeOf(err error, success string) string {
	switch {
	case err == nil:
		return success
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidReference):
		return OutcomeInvalid
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return OutcomeInsufficientFunds
	default:
		return OutcomeError
	}
}

// logFailure logs internal errors with their full chain. Rejections caused
// by the caller are logged at debug level only.
func logFailure(logger zerolog.Logger, operation string, err error) {
	if err == nil {
		return
	}

	if outcomeOf(err, "") == OutcomeError {
		logger.Error().Err(err).Str("operation", operation).Msg("operation failed")
		return
	}

	logger.Debug().Err(err).Str("operation", operation).Msg("operation rejected")
}

func observe(rec MetricsRecorder, operation string, start time.Time, outcome string) {
	rec.ObserveOperation(operation, outcome, time.Since(start))
}
