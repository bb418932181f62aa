// Package runner is the transport-facing entry point of a conversation.
//
// A Runner serializes turns per session, loads the checkpoint, lets the
// dialog engine run the turn and persists the resulting state. It is what the
// CLI and the HTTP API call; neither talks to the engine directly.
//
// Errors returned by Chat are infrastructure failures (lock, load, save).
// Model and tool problems are answered inside the turn with an apology or a
// tool error, so a reply is always produced when the stores are healthy.
package runner
