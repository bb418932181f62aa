package core

import "context"

// ArtifactStore defines the interface for persisting generated documents.
// Implementations should be thread-safe and scope artifacts by session
// identifier.
type ArtifactStore interface {
	Save(ctx context.Context, sessionID, artifactID string, data []byte) error
	Get(ctx context.Context, sessionID, artifactID string) ([]byte, error)
	List(ctx context.Context, sessionID string) ([]string, error)
	Delete(ctx context.Context, sessionID, artifactID string) error
}
