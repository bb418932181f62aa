// Package logging provides the minimal Logger interface the dialog engine,
// stores and tools log through, plus adapters:
//
//   - ZerologAdapter, the default backend built by New from a Config
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "console"})
//	eng := engine.New(primary, engine.WithLogger(logger))
package logging
