package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/executor"
)

// reportPhase compiles the final GoalResult from per-task outcomes and
// transitions the goal to its terminal state. Task failures stay inside the
// per-task boundary, so a goal that executed its plan completes even when
// every task failed; the summary carries the failures. Cancellation is the
// exception and fails the goal with a note in the summary.
func (e *Engine) reportPhase(ctx context.Context, goal *core.Goal, tasks []*core.Task, results []executor.Result, cancelled bool) *GoalResult {
	completed := 0
	deliverables := 0
	var scoreSum float64
	var scoreCount int
	for _, r := range results {
		if r.Status == core.TaskCompleted {
			completed++
		}
		deliverables += len(r.Deliverables)
		if r.QualityScore != nil {
			scoreSum += *r.QualityScore
			scoreCount++
		}
	}

	// Usage counters were rolled up atomically by the executor; re-read so
	// the report reflects the stored totals.
	stored, err := e.store.GetGoal(ctx, goal.ID)
	if err == nil {
		goal.TokensUsed = stored.TokensUsed
		goal.EstimatedCost = stored.EstimatedCost
	}

	now := time.Now().UTC()
	goal.CompletedTasks = completed
	goal.Summary = compileSummary(goal, tasks, results, deliverables, cancelled)
	goal.CompletedAt = &now
	if cancelled {
		goal.Status = core.GoalFailed
	} else {
		goal.Status = core.GoalCompleted
	}
	if scoreCount > 0 {
		mean := scoreSum / float64(scoreCount)
		goal.QualityScore = &mean
	}
	if err := e.store.UpdateGoal(ctx, goal); err != nil {
		e.logger.Error("could not record goal outcome", "goal_id", goal.ID, "error", err)
	}

	action := core.AuditGoalCompleted
	if goal.Status == core.GoalFailed {
		action = core.AuditGoalFailed
	}
	e.appendAudit(ctx, core.NewAuditEntry(goal.TenantID, "engine", action, "goal", goal.ID, map[string]any{
		"completed_tasks": completed,
		"total_tasks":     len(tasks),
		"deliverables":    deliverables,
		"tokens_used":     goal.TokensUsed,
	}))

	return &GoalResult{
		GoalID:        goal.ID,
		Status:        goal.Status,
		Summary:       goal.Summary,
		QualityScore:  goal.QualityScore,
		TaskResults:   results,
		TokensUsed:    goal.TokensUsed,
		EstimatedCost: goal.EstimatedCost,
	}
}

// compileSummary renders the human-readable execution report: one line of
// headline counts followed by a per-task line in plan order.
func compileSummary(goal *core.Goal, tasks []*core.Task, results []executor.Result, deliverables int, cancelled bool) string {
	var b strings.Builder
	completed := 0
	for _, r := range results {
		if r.Status == core.TaskCompleted {
			completed++
		}
	}
	headline := "Completed"
	if cancelled {
		headline = "Cancelled after"
	}
	fmt.Fprintf(&b, "%s %d/%d tasks with %d deliverable(s) for: %s\n",
		headline, completed, len(tasks), deliverables, goal.Command)
	for i, r := range results {
		name := r.Agent.DisplayName()
		switch r.Status {
		case core.TaskCompleted:
			fmt.Fprintf(&b, "%d. %s: %s", i+1, name, r.Summary)
			if n := len(r.Deliverables); n > 0 {
				fmt.Fprintf(&b, " (%d deliverable(s))", n)
			}
		default:
			fmt.Fprintf(&b, "%d. %s: failed", i+1, name)
			if r.Error != "" {
				fmt.Fprintf(&b, " (%s)", r.Error)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
