// Package store provides the volatile in-memory implementation of
// core.Store and core.AuditLog. It is safe for concurrent access and best
// suited for tests and ephemeral demo runs; durable deployments use
// store/sqlite. Returned records are cloned to prevent external mutation of
// internal state.
package store
