package core

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by a Checkpointer for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Checkpointer persists conversation state between turns, keyed by session id.
// Implementations must be safe for concurrent use; callers serialize turns of
// the same session themselves.
type Checkpointer interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, sessionID string, state *State) error
	Delete(ctx context.Context, sessionID string) error
}
