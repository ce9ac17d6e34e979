package core

import (
	"time"

	"github.com/google/uuid"
)

// GoalStatus tracks a goal through its lifecycle. Transitions are monotonic:
// once a goal reaches a terminal state (completed or failed) it never
// regresses.
type GoalStatus string

const (
	// GoalPlanning is the initial state while the planner decomposes the command.
	GoalPlanning GoalStatus = "planning"
	// GoalExecuting means tasks are being dispatched to agents.
	GoalExecuting GoalStatus = "executing"
	// GoalCompleted is the terminal success state.
	GoalCompleted GoalStatus = "completed"
	// GoalFailed is the terminal failure state (planning failure or cancellation).
	GoalFailed GoalStatus = "failed"
)

// Terminal reports whether the status is one of the two terminal states.
func (s GoalStatus) Terminal() bool { return s == GoalCompleted || s == GoalFailed }

// IntentTag classifies what kind of work a command asks for. The planner
// assigns one of the fixed tags, or IntentMixed when a command spans several.
type IntentTag string

const (
	// IntentContent covers content creation commands (posts, documents).
	IntentContent IntentTag = "content"
	// IntentOutreach covers customer-facing messaging commands.
	IntentOutreach IntentTag = "outreach"
	// IntentAnalysis covers research and analysis commands.
	IntentAnalysis IntentTag = "analysis"
	// IntentScheduling covers planning and scheduling commands.
	IntentScheduling IntentTag = "scheduling"
	// IntentMixed marks commands spanning more than one intent.
	IntentMixed IntentTag = "mixed"
)

// ParseIntentTag maps free text to a known tag, defaulting to IntentMixed for
// anything the planner emitted that is not in the closed set.
func ParseIntentTag(s string) IntentTag {
	switch IntentTag(s) {
	case IntentContent, IntentOutreach, IntentAnalysis, IntentScheduling:
		return IntentTag(s)
	default:
		return IntentMixed
	}
}

// Priority is the urgency tier assigned by the planner.
type Priority string

const (
	// PriorityLow marks background work.
	PriorityLow Priority = "low"
	// PriorityNormal is the default tier.
	PriorityNormal Priority = "normal"
	// PriorityHigh marks time-sensitive work.
	PriorityHigh Priority = "high"
	// PriorityUrgent marks work that should preempt everything else.
	PriorityUrgent Priority = "urgent"
)

// ParsePriority maps free text to a known tier, defaulting to PriorityNormal.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityHigh, PriorityUrgent:
		return Priority(s)
	default:
		return PriorityNormal
	}
}

// TaskSpec is one planned task entry inside a goal's accepted plan. DependsOn
// holds zero-based indices into the plan's task list; the orchestrator
// resolves them to concrete task identifiers when it materializes Task rows.
type TaskSpec struct {
	Agent        AgentID `json:"agent"`
	Instructions string  `json:"instructions"`
	DependsOn    []int   `json:"depends_on,omitempty"`
}

// Goal is one user command under execution. It is created by the orchestrator
// in GoalPlanning state and mutated only by the orchestrator; goals are never
// deleted so the record doubles as the audit anchor for reporting.
//
// Invariants:
//   - CompletedTasks <= TotalTasks
//   - Status never regresses from a terminal state
type Goal struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Command        string     `json:"command"`
	Intent         IntentTag  `json:"intent"`
	Priority       Priority   `json:"priority"`
	Status         GoalStatus `json:"status"`
	Plan           []TaskSpec `json:"plan,omitempty"`
	TotalTasks     int        `json:"total_tasks"`
	CompletedTasks int        `json:"completed_tasks"`
	TokensUsed     int        `json:"tokens_used"`
	EstimatedCost  float64    `json:"estimated_cost"`
	QualityScore   *float64   `json:"quality_score,omitempty"`
	Summary        string     `json:"summary,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewGoal creates a goal in the planning state for the given tenant/command.
func NewGoal(tenantID, command string) *Goal {
	return &Goal{
		ID:        NewID(),
		TenantID:  tenantID,
		Command:   command,
		Intent:    IntentMixed,
		Priority:  PriorityNormal,
		Status:    GoalPlanning,
		CreatedAt: time.Now().UTC(),
	}
}

// NewID generates a new unique identifier for domain entities and audit
// entries. Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
