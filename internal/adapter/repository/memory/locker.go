package memory

import (
	"context"
	"sync"

	"github.com/iho/entryledger/internal/usecase"
)

// Locker serializes work per account inside one process.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	ch   chan struct{}
	refs int
}

// NewLocker creates a new Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*accountLock)}
}

// WithAccountLock runs fn while holding the lock of accountID. Waiting for
// the lock respects ctx cancellation.
func (l *Locker) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	lock := l.acquire(accountID)
	defer l.release(accountID, lock)

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lock.ch }()

	return fn(ctx)
}

func (l *Locker) acquire(accountID string) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[accountID]
	if !ok {
		lock = &accountLock{ch: make(chan struct{}, 1)}
		l.locks[accountID] = lock
	}
	lock.refs++

	return lock
}

// release drops the entry once no caller references it.
func (l *Locker) release(accountID string, lock *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, accountID)
	}
}

var _ usecase.AccountLocker = (*Locker)(nil)
