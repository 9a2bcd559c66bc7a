package eventpublisher

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrQueueFull is reported for events dropped because the dispatch queue
// had no room left.
var ErrQueueFull = errors.New("event queue full")

type event struct {
	topic   string
	payload []byte
}

// DispatcherConfig for Dispatcher.
type DispatcherConfig struct {
	QueueSize    int           // Events buffered before new ones are dropped
	DrainTimeout time.Duration // Time allowed to flush the queue on shutdown
	Logger       zerolog.Logger
	Metrics      Recorder
}

// Dispatcher queues events and delivers them from a background worker, so a
// slow or unreachable broker never holds up the operation that produced them.
type Dispatcher struct {
	next         Publisher
	queue        chan event
	drainTimeout time.Duration
	logger       zerolog.Logger
	metrics      Recorder
}

// NewDispatcher creates a Dispatcher delivering to next. Call Start to run
// the worker.
func NewDispatcher(next Publisher, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = 5 * time.Second
	}

	return &Dispatcher{
		next:         next,
		queue:        make(chan event, cfg.QueueSize),
		drainTimeout: cfg.DrainTimeout,
		logger:       cfg.Logger.With().Str("component", "event_dispatcher").Logger(),
		metrics:      cfg.Metrics,
	}
}

// Publish enqueues the event and returns immediately. When the queue is full
// the event is dropped, logged and counted.
func (d *Dispatcher) Publish(_ context.Context, topic string, payload []byte) error {
	select {
	case d.queue <- event{topic: topic, payload: payload}:
	default:
		d.drop(event{topic: topic, payload: payload}, ErrQueueFull)
	}

	return nil
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Start runs the delivery worker until ctx is cancelled. Events still queued
// at that point are flushed within the drain timeout.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info().Int("queue_size", cap(d.queue)).Msg("event dispatcher started")

	deliverCtx := context.WithoutCancel(ctx)

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case ev := <-d.queue:
			d.deliver(deliverCtx, ev)
		}
	}

	d.drain()
	d.logger.Info().Msg("event dispatcher shutting down")

	return ctx.Err()
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()

	for {
		select {
		case ev := <-d.queue:
			if err := ctx.Err(); err != nil {
				d.drop(ev, err)
				continue
			}
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev event) {
	if err := d.next.Publish(ctx, ev.topic, ev.payload); err != nil {
		d.logger.Warn().Err(err).Str("topic", ev.topic).Msg("failed to publish event")
	}
}

func (d *Dispatcher) drop(ev event, err error) {
	d.logger.Error().
		Err(err).
		Str("topic", ev.topic).
		Int("payload_bytes", len(ev.payload)).
		Msg("event dropped")

	if d.metrics != nil {
		d.metrics.ObservePublish(ev.topic, err)
	}
}
