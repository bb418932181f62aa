package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisRecordStore keeps records in Redis with a key expiry, so pending
// verifications survive restarts and are shared between processes.
type RedisRecordStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// RedisOption configures a RedisRecordStore.
type RedisOption func(*RedisRecordStore)

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisRecordStore) { s.prefix = prefix }
}

// WithRedisClock replaces time.Now when computing the remaining lifetime.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisRecordStore) { s.now = now }
}

// NewRedisRecordStore creates a store on client whose records live for ttl.
func NewRedisRecordStore(client *backend.Client, ttl time.Duration, opts ...RedisOption) *RedisRecordStore {
	s := &RedisRecordStore{
		client: client,
		prefix: "coopdesk:otp:",
		ttl:    ttl,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisRecordStore) key(k Key) string { return s.prefix + k.String() }

// Get implements RecordStore.
func (s *RedisRecordStore) Get(ctx context.Context, key Key) (Record, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return Record{}, ErrRecordNotFound
	}

	if err != nil {
		return Record{}, fmt.Errorf("load verification record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode verification record: %w", err)
	}

	return rec, nil
}

// Put implements RecordStore. The key expires TTL after rec.CreatedAt.
func (s *RedisRecordStore) Put(ctx context.Context, key Key, rec Record) error {
	var expiry time.Duration

	if s.ttl > 0 {
		expiry = s.ttl - s.now().Sub(rec.CreatedAt)
		if expiry <= 0 {
			return s.Delete(ctx, key)
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode verification record: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), data, expiry).Err(); err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}

	return nil
}

// Delete implements RecordStore.
func (s *RedisRecordStore) Delete(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("delete verification record: %w", err)
	}

	return nil
}
