// Package engine implements the goal orchestration layer for GoalMesh.
//
// The Engine owns the complete lifecycle of a goal: it consults the policy
// guard, invokes the planner, materializes task records with resolved
// dependency edges, fans tasks out to the executor honoring the dependency
// graph, aggregates results and compiles the final report.
//
// # Core Responsibilities
//
// Goal Lifecycle:
//   - Policy pre-flight before any goal record is created
//   - Planning with the single-task fallback guarantee
//   - Monotonic status transitions (planning -> executing -> terminal)
//   - Final report compilation and aggregate quality scoring
//
// Task Orchestration:
//   - Dependency-ordered dispatch with a bounded worker pool
//   - Failed dependencies treated as advisory (configurable to blocking)
//   - Per-task results collected without shared mutable state
//   - Context-aware cancellation between retry attempts
//
// Dispatch:
//   - ShipDeliverable gating outbound sends through the policy guard
//   - dispatch.blocked audit entries for denied sends
//
// # Error Handling
//
// The engine never receives a raw completion-service or extraction failure;
// the executor converts everything below it into failure-shaped results.
// ExecuteGoal itself always returns a GoalResult with a human-readable
// summary, even on partial or total failure. A goal only reaches the failed
// status when planning could not produce even the fallback task list, the
// goal was cancelled, or an error occurred outside the per-task boundary.
package engine
