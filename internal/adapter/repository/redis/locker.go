package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/entryledger/internal/usecase"
)

var _ usecase.AccountLocker = (*Locker)(nil)

// Locker holds a RedLock lease on an account so that several engine
// instances never check and spend the same balance concurrently.
type Locker struct {
	rs         *redsync.Redsync
	prefix     string
	ttl        time.Duration
	tries      int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// LockerConfig configures lease timing.
type LockerConfig struct {
	TTL        time.Duration
	Tries      int
	RetryDelay time.Duration
}

// NewLocker creates a Locker over client.
func NewLocker(client *redis.Client, cfg LockerConfig, logger zerolog.Logger) *Locker {
	if cfg.TTL == 0 {
		cfg.TTL = 15 * time.Second
	}
	if cfg.Tries == 0 {
		cfg.Tries = 64
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 25 * time.Millisecond
	}

	return &Locker{
		rs:         redsync.New(goredis.NewPool(client)),
		prefix:     "lock:account:",
		ttl:        cfg.TTL,
		tries:      cfg.Tries,
		retryDelay: cfg.RetryDelay,
		logger:     logger.With().Str("component", "account_locker").Logger(),
	}
}

// WithAccountLock runs fn while holding the lease for accountID. The lease is
// extended every half TTL until fn returns; if an extension fails, the
// context passed to fn is cancelled.
func (l *Locker) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(
		l.prefix+accountID,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(l.retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock for account %s: %w", accountID, err)
	}

	defer func() {
		// Release even when the request context is already done.
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			l.logger.Warn().
				Err(err).
				Str("account_id", accountID).
				Bool("unlock_ok", ok).
				Msg("failed to release account lock")
		}
	}()

	fnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan struct{})
	kept := make(chan struct{})
	go func() {
		defer close(kept)
		l.keepAlive(fnCtx, mutex, accountID, stop, cancel)
	}()

	err := fn(fnCtx)

	close(stop)
	<-kept

	return err
}

func (l *Locker) keepAlive(ctx context.Context, mutex *redsync.Mutex, accountID string, stop <-chan struct{}, lost context.CancelFunc) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ok, err := mutex.ExtendContext(ctx); !ok || err != nil {
				l.logger.Error().
					Err(err).
					Str("account_id", accountID).
					Msg("account lock lost")
				lost()
				return
			}
		}
	}
}
