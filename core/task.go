package core

import "time"

// TaskStatus tracks a task through the executor's state machine:
// pending -> running -> (retrying -> running)* -> completed | failed.
type TaskStatus string

const (
	// TaskPending means the task is created but not yet started.
	TaskPending TaskStatus = "pending"
	// TaskRunning means an attempt is in flight.
	TaskRunning TaskStatus = "running"
	// TaskRetrying means a failed verification triggered another attempt.
	TaskRetrying TaskStatus = "retrying"
	// TaskCompleted is the terminal success state.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed is the terminal failure state.
	TaskFailed TaskStatus = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s TaskStatus) Terminal() bool { return s == TaskCompleted || s == TaskFailed }

// DefaultMaxRetries is the retry budget applied to planned tasks unless an
// agent profile overrides it. A task therefore makes at most
// DefaultMaxRetries+1 attempts.
const DefaultMaxRetries = 2

// Task is one agent assignment belonging to a goal. Created from planner
// output, mutated exclusively by the task executor, and immutable once
// terminal except for the orchestrator's aggregate rollups on the parent
// goal.
//
// Invariants:
//   - RetryCount <= MaxRetries
//   - a task only enters running once every task in DependsOn is terminal
type Task struct {
	ID           string        `json:"id"`
	GoalID       string        `json:"goal_id"`
	TenantID     string        `json:"tenant_id"`
	Agent        AgentID       `json:"agent"`
	Instructions string        `json:"instructions"`
	DependsOn    []string      `json:"depends_on,omitempty"`
	Status       TaskStatus    `json:"status"`
	RetryCount   int           `json:"retry_count"`
	MaxRetries   int           `json:"max_retries"`
	Summary      string        `json:"summary,omitempty"`
	QualityScore *float64      `json:"quality_score,omitempty"`
	TokensUsed   int           `json:"tokens_used"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// NewTask creates a pending task for the given goal and agent assignment.
func NewTask(goalID, tenantID string, agent AgentID, instructions string) *Task {
	return &Task{
		ID:           NewID(),
		GoalID:       goalID,
		TenantID:     tenantID,
		Agent:        agent,
		Instructions: instructions,
		Status:       TaskPending,
		MaxRetries:   DefaultMaxRetries,
		CreatedAt:    time.Now().UTC(),
	}
}
