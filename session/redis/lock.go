package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/coopdesk/session"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockAcquire is returned when the lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire distributed lock")

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// renewScript extends the lock only if it still holds our token.
var renewScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// Locker implements session.Locker using SET NX PX. A held lock is renewed
// until it is released, so its TTL only bounds how long a crashed holder
// blocks the key.
type Locker struct {
	client        *backend.Client
	prefix        string
	pollInterval  time.Duration
	renewInterval time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithRenewInterval sets how often a held lock is extended. The default is a
// third of the lock TTL.
func WithRenewInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		l.renewInterval = d
	}
}

// NewLocker creates a Redis locker.
func NewLocker(client *backend.Client, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{
		client:       client,
		prefix:       prefix,
		pollInterval: 50 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Lock polls until the lock for key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (session.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			return nil, fmt.Errorf("%w: %w", ErrLockAcquire, err)
		}

		if ok {
			stop := l.keepAlive(ctx, lockKey, token, ttl)

			return func(ctx context.Context) error {
				stop()
				return releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// keepAlive extends the lock every renew interval until the returned stop
// function is called or the lock is no longer ours.
func (l *Locker) keepAlive(ctx context.Context, lockKey, token string, ttl time.Duration) func() {
	interval := l.renewInterval
	if interval <= 0 {
		interval = ttl / 3
	}

	if interval <= 0 {
		return func() {}
	}

	renewCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-renewCtx.Done():
				return
			case <-ticker.C:
				n, err := renewScript.Run(renewCtx, l.client, []string{lockKey}, token, ttl.Milliseconds()).Int()
				if err != nil && renewCtx.Err() != nil {
					return
				}

				if err == nil && n == 0 {
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
