package eventpublisher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Publisher delivers a serialized event to a topic on an external broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Recorder counts delivered and dropped events.
type Recorder interface {
	ObservePublish(topic string, err error)
}

// Config for BestEffort.
type Config struct {
	Timeout         time.Duration // Per-attempt deadline
	MaxRetries      uint64        // Retries after the first attempt
	InitialInterval time.Duration
	Logger          zerolog.Logger
	Metrics         Recorder
}

// BestEffort retries a broker a bounded number of times and then gives up.
// Publish never returns an error: ledger writes are already committed when
// events go out, and a broker outage must not surface as a failed operation.
type BestEffort struct {
	next            Publisher
	timeout         time.Duration
	maxRetries      uint64
	initialInterval time.Duration
	logger          zerolog.Logger
	metrics         Recorder
}

// NewBestEffort wraps next.
func NewBestEffort(next Publisher, cfg Config) *BestEffort {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}

	return &BestEffort{
		next:            next,
		timeout:         cfg.Timeout,
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		logger:          cfg.Logger.With().Str("component", "event_publisher").Logger(),
		metrics:         cfg.Metrics,
	}
}

// Publish sends payload to topic, retrying with exponential backoff.
func (p *BestEffort) Publish(ctx context.Context, topic string, payload []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxElapsedTime = 0

	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		return p.next.Publish(attemptCtx, topic, payload)
	}

	notify := func(err error, wait time.Duration) {
		p.logger.Warn().
			Err(err).
			Str("topic", topic).
			Dur("retry_in", wait).
			Msg("publish attempt failed")
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(b, p.maxRetries), ctx), notify)

	if p.metrics != nil {
		p.metrics.ObservePublish(topic, err)
	}

	if err != nil {
		p.logger.Error().
			Err(err).
			Str("topic", topic).
			Int("payload_bytes", len(payload)).
			Msg("event dropped")
		return nil
	}

	p.logger.Debug().Str("topic", topic).Msg("event published")

	return nil
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.logger.Info().
		Str("topic", topic).
		RawJSON("payload", payload).
		Msg("EVENT PUBLISHED")

	return nil
}
