// Package core provides the foundational domain types and interfaces used by
// GoalMesh. It defines the core abstractions for:
//
//   - Goals (one user command under orchestrated execution)
//   - Tasks (agent-assigned units of work with dependency edges)
//   - Deliverables (persisted artifacts produced by completed tasks)
//   - Audit entries (append-only event records for every state transition)
//   - Agent identities (the closed set of capability profiles)
//   - Service interfaces (Store, AuditLog, PolicyGuard, PromptBuilder)
//
// The package is dependency-light by design so that every other package can
// import it without cycles. Concrete implementations of the service
// interfaces live in their own packages (store, store/sqlite, policy,
// prompt).
package core
