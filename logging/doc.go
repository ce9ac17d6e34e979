// Package logging provides a minimal logging interface and adapters for GoalMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine packages use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - GoalMeshLogger with contextual helpers (goal, task, component) and
//     domain specific logging helpers for model calls and task attempts
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(store, audit, client, engine.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
