package verification

import (
	"context"
	"sync"
	"time"
)

// Key scopes a verification to one session and one national ID.
type Key struct {
	SessionID string
	Cedula    string
}

func (k Key) String() string { return k.SessionID + ":" + k.Cedula }

// Record is the progress of one verification.
type Record struct {
	Contact   string    `json:"contact"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordStore persists verification records. Records expire TTL after
// CreatedAt; updating a record does not extend its lifetime.
type RecordStore interface {
	Get(ctx context.Context, key Key) (Record, error)
	Put(ctx context.Context, key Key, rec Record) error
	Delete(ctx context.Context, key Key) error
}

// MemoryRecordStore is an in-process RecordStore. Expired records are
// dropped lazily on access.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[Key]Record
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryRecordStore.
type MemoryOption func(*MemoryRecordStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryRecordStore) { s.now = now }
}

// NewMemoryRecordStore creates a store whose records live for ttl. A zero ttl
// keeps records until deleted.
func NewMemoryRecordStore(ttl time.Duration, opts ...MemoryOption) *MemoryRecordStore {
	s := &MemoryRecordStore{
		records: make(map[Key]Record),
		ttl:     ttl,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get implements RecordStore.
func (s *MemoryRecordStore) Get(ctx context.Context, key Key) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrRecordNotFound
	}

	if s.expired(rec) {
		delete(s.records, key)
		return Record{}, ErrRecordNotFound
	}

	return rec, nil
}

// Put implements RecordStore.
func (s *MemoryRecordStore) Put(ctx context.Context, key Key, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = rec

	return nil
}

// Delete implements RecordStore. Deleting a missing key is not an error.
func (s *MemoryRecordStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)

	return nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryRecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

func (s *MemoryRecordStore) expired(rec Record) bool {
	return s.ttl > 0 && !s.now().Before(rec.CreatedAt.Add(s.ttl))
}
