// Package session provides conversation state persistence and per-session
// mutual exclusion.
//
// InMemoryStore implements core.Checkpointer for tests and single-process
// deployments; the redis and sqlite sub-packages provide durable backends.
// Locks guarantees that at most one turn of a session runs at a time.
package session
