// Package compaction keeps long conversations within the model context by
// replacing the oldest messages with a running summary stored in
// core.State.Context. Cuts are placed only before a user message and never
// separate a tool call from its result.
package compaction
