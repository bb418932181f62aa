// Package model defines the provider-agnostic abstractions for interacting
// with tool-calling language models.
//
// Core goals:
//   - A single channel-based Generate interface for every provider
//   - Normalized tool definitions and function call parts
//   - Token usage propagated from provider responses
//   - Deterministic ScriptedModel for tests and offline demos
//
// Providers (OpenAI, Anthropic) live in subpackages so higher layers remain
// decoupled from vendor SDKs.
package model
