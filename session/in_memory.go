package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/coopdesk/core"
)

// InMemoryStore is a volatile core.Checkpointer storing states in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo servers. States are stored as JSON snapshots so callers can
// never mutate stored data through shared slices.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewInMemoryStore constructs an empty in‑memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string][]byte)}
}

// Load returns a copy of the stored state or core.ErrSessionNotFound.
func (s *InMemoryStore) Load(_ context.Context, sessionID string) (*core.State, error) {
	s.mu.RLock()
	data, ok := s.states[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, core.ErrSessionNotFound
	}

	var state core.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// Save stores a snapshot of state.
func (s *InMemoryStore) Save(_ context.Context, sessionID string, state *core.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[sessionID] = data

	return nil
}

// Delete removes the session. Deleting an unknown session is not an error.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, sessionID)

	return nil
}

// List returns the stored session ids, sorted.
func (s *InMemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids, nil
}
