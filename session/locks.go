package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/coopdesk/logging"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// Locker is a distributed lock shared by several processes serving the same
// sessions. session/redis.Locker implements it.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locks serializes work per key inside one process and, when a Locker is
// configured, across processes. Entries are reference counted and removed
// once unused, so the map only holds keys currently in use.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  Locker
	lockTTL time.Duration
	logger  logging.Logger
}

// LocksOption configures Locks.
type LocksOption func(*Locks)

// WithLocker enables distributed locking.
func WithLocker(locker Locker, ttl time.Duration) LocksOption {
	return func(l *Locks) {
		l.locker = locker
		l.lockTTL = ttl
	}
}

// WithLogger configures a logger for deferred release errors.
func WithLogger(logger logging.Logger) LocksOption {
	return func(l *Locks) {
		l.logger = logging.OrNoOp(logger)
	}
}

// NewLocks creates an empty lock table.
func NewLocks(opts ...LocksOption) *Locks {
	l := &Locks{
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(key) after unlocking.
func (l *Locks) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		entry = &lockEntry{}
		l.locks[key] = entry
	}

	entry.refs++

	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (l *Locks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, key)
	}
}

// WithLock runs fn while holding the lock for key.
func (l *Locks) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := l.acquire(key)
	entry.mu.Lock()

	defer func() {
		entry.mu.Unlock()
		l.release(key)
	}()

	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx, key, l.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}

		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				l.logger.Warn("session.lock.release_failed", "key", key, "error", err)
			}
		}()
	}

	return fn(ctx)
}

// Len returns the number of keys currently locked or waited on.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
