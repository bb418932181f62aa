// Package core provides the foundational domain types shared by the dialog
// orchestration packages:
//
//   - Messages and their closed set of content parts
//   - State, the per-session conversation state, and the Update reducers that
//     merge messages by ID and push/pop the dialog stack
//   - Tool pairing validation for conversation histories
//   - ToolContext, the scoped surface handed to tool implementations
//   - Checkpointer and ArtifactStore interfaces for pluggable persistence
//
// The package keeps persistence and orchestration out of scope so that stores,
// model adapters and the dialog engine can evolve independently.
package core
