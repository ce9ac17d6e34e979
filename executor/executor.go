// Package executor runs one task to completion: build prompt, call the
// completion service, recover outputs, verify quality, retry with corrective
// feedback up to the task's budget, persist deliverables and write audit
// entries for every transition.
//
// The executor is the component boundary for error conversion: nothing above
// it ever sees a raw completion-service or extraction failure. Run always
// returns a Result; a task that cannot make progress comes back
// failure-shaped, never as an error.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/extract"
	"github.com/goalmesh/goalmesh/logging"
	"github.com/goalmesh/goalmesh/model"
	"github.com/goalmesh/goalmesh/verify"
)

// DefaultCostPerToken is the blended per-token price used for goal cost
// rollups when no rate is configured.
const DefaultCostPerToken = 0.000003

// Result is the outcome of running one task. Always populated; Status is
// TaskCompleted or TaskFailed.
type Result struct {
	TaskID       string              `json:"task_id"`
	Agent        core.AgentID        `json:"agent"`
	Status       core.TaskStatus     `json:"status"`
	Summary      string              `json:"summary"`
	Deliverables []*core.Deliverable `json:"deliverables,omitempty"`
	TokensUsed   int                 `json:"tokens_used"`
	Duration     time.Duration       `json:"duration"`
	QualityScore *float64            `json:"quality_score,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Options configures an Executor.
type Options struct {
	// CostPerToken prices token usage for goal cost rollups.
	CostPerToken float64

	// CallTimeout caps each completion call. Defaults to
	// model.DefaultCallTimeout.
	CallTimeout time.Duration

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Executor drives the per-task retry/verify state machine.
type Executor struct {
	store    core.Store
	audit    core.AuditLog
	client   model.CompletionClient
	verifier *verify.Verifier
	prompts  core.PromptBuilder
	opts     Options
}

// New constructs an Executor.
func New(
	store core.Store,
	audit core.AuditLog,
	client model.CompletionClient,
	verifier *verify.Verifier,
	prompts core.PromptBuilder,
	optFns ...func(o *Options),
) *Executor {
	opts := Options{
		CostPerToken: DefaultCostPerToken,
		CallTimeout:  model.DefaultCallTimeout,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.CostPerToken <= 0 {
		opts.CostPerToken = DefaultCostPerToken
	}
	return &Executor{
		store:    store,
		audit:    audit,
		client:   client,
		verifier: verifier,
		prompts:  prompts,
		opts:     opts,
	}
}

// attempt is the bookkeeping for one pass through the retry loop.
type attempt struct {
	items   []core.OutputItem
	summary string
	verdict *verify.Verdict
}

// Run executes the task state machine:
// pending -> running -> (retrying -> running)* -> completed | failed.
//
// Tokens from every attempt accumulate into the result regardless of the
// attempt's outcome. A cancelled context stops new completion calls at the
// next checkpoint; work already produced is persisted by the caller's goal
// rollup path before the goal is marked failed.
func (e *Executor) Run(ctx context.Context, task *core.Task, goal *core.Goal, snapshot core.ContextSnapshot) Result {
	logger := e.opts.Logger
	start := time.Now()

	if err := e.markRunning(ctx, task); err != nil {
		return e.fail(ctx, task, goal, start, 0, fmt.Errorf("mark running: %w", err))
	}

	systemPrompt, err := e.prompts.BuildPrompt(task.Agent, snapshot)
	if err != nil {
		return e.fail(ctx, task, goal, start, 0, fmt.Errorf("build prompt: %w", err))
	}

	var (
		accepted  *attempt
		feedback  string
		totalToks int
		lastErr   error
	)

	for n := 0; n <= task.MaxRetries; n++ {
		// Cooperative cancellation point: a cancelled goal stops issuing
		// new completion calls but keeps whatever earlier attempts produced.
		if err := ctx.Err(); err != nil {
			lastErr = fmt.Errorf("cancelled before attempt %d: %w", n, err)
			break
		}

		if n > 0 {
			if err := e.markRetrying(ctx, task, n, feedback); err != nil {
				lastErr = fmt.Errorf("mark retrying: %w", err)
				break
			}
		}

		instructions := task.Instructions
		if feedback != "" {
			instructions += "\n\nREVIEWER FEEDBACK ON YOUR PREVIOUS ATTEMPT (address all of it):\n" + feedback
		}

		completion, err := e.client.Complete(ctx, model.Request{
			System:       systemPrompt,
			Instructions: instructions,
			Timeout:      e.opts.CallTimeout,
		})
		if err != nil {
			lastErr = err
			logger.Warn("completion call failed", "task_id", task.ID, "attempt", n, "kind", model.KindOf(err))
			continue
		}
		totalToks += completion.TotalTokens()

		items, summary := e.recoverOutputs(completion.Text, task)
		if len(items) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}

		verdict, err := e.verifier.Verify(ctx, task.Instructions, items)
		if err != nil {
			// Verifier availability is best-effort; degrade to an
			// optimistic pass at the neutral score.
			logger.Warn("verifier unavailable, applying neutral pass", "task_id", task.ID, "error", err)
			verdict = verify.NeutralVerdict()
		}

		if verdict.Pass || n == task.MaxRetries {
			accepted = &attempt{items: items, summary: summary, verdict: verdict}
			break
		}

		feedback = verdict.Feedback
		if feedback == "" {
			feedback = fmt.Sprintf("Overall quality was %.0f/100, below the bar. Be more specific and actionable.", verdict.Overall)
		}
	}

	if accepted == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no attempt produced output")
		}
		return e.fail(ctx, task, goal, start, totalToks, lastErr)
	}

	deliverables, err := e.persistDeliverables(ctx, task, goal, accepted)
	if err != nil {
		return e.fail(ctx, task, goal, start, totalToks, fmt.Errorf("persist deliverables: %w", err))
	}

	return e.complete(ctx, task, goal, start, totalToks, accepted, deliverables)
}

// markRunning transitions the task to running and audits the start.
func (e *Executor) markRunning(ctx context.Context, task *core.Task) error {
	now := time.Now().UTC()
	task.Status = core.TaskRunning
	task.StartedAt = &now
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return err
	}
	return e.audit.Append(ctx, core.NewAuditEntry(
		task.TenantID, string(task.Agent), core.AuditTaskStarted, "task", task.ID,
		map[string]any{"goal_id": task.GoalID, "agent": task.Agent},
	))
}

// markRetrying bumps the retry counter and audits the transition. The task
// re-enters running as soon as the next completion call is issued.
func (e *Executor) markRetrying(ctx context.Context, task *core.Task, n int, feedback string) error {
	task.Status = core.TaskRetrying
	task.RetryCount = n
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return err
	}
	if err := e.audit.Append(ctx, core.NewAuditEntry(
		task.TenantID, string(task.Agent), core.AuditTaskRetrying, "task", task.ID,
		map[string]any{"attempt": n, "feedback": feedback},
	)); err != nil {
		return err
	}
	task.Status = core.TaskRunning
	return nil
}

// recoverOutputs extracts the structured output list from the response, or
// falls back to deterministic segmentation so any non-empty response yields
// at least one item.
func (e *Executor) recoverOutputs(text string, task *core.Task) ([]core.OutputItem, string) {
	if obj, ok := extract.Object(text); ok {
		var items []core.OutputItem
		for _, raw := range extract.List(obj, "outputs") {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			content := extract.String(m, "content")
			if strings.TrimSpace(content) == "" {
				continue
			}
			title := extract.String(m, "title")
			if title == "" {
				title = fmt.Sprintf("%s output", task.Agent.DisplayName())
			}
			items = append(items, core.OutputItem{
				Type:    core.ParseDeliverableType(extract.String(m, "type")),
				Title:   title,
				Content: content,
			})
		}
		if len(items) > 0 {
			summary := extract.String(obj, "summary")
			if summary == "" {
				summary = fmt.Sprintf("Produced %d output item(s)", len(items))
			}
			return items, summary
		}
	}

	segments := extract.Segments(text)
	items := make([]core.OutputItem, 0, len(segments))
	for _, seg := range segments {
		items = append(items, core.OutputItem{
			Type:    core.DeliverableDocument,
			Title:   seg.Title,
			Content: seg.Body,
		})
	}
	summary := fmt.Sprintf("Produced %d output item(s) via text segmentation", len(items))
	return items, summary
}

// persistDeliverables creates one draft deliverable per accepted output
// item, each carrying the verifier's per-dimension scores.
func (e *Executor) persistDeliverables(ctx context.Context, task *core.Task, goal *core.Goal, a *attempt) ([]*core.Deliverable, error) {
	deliverables := make([]*core.Deliverable, 0, len(a.items))
	for _, item := range a.items {
		d := core.NewDeliverable(goal.ID, task.ID, task.TenantID, task.Agent, item.Type, item.Title, item.Content)
		d.Scores = a.verdict.Scores
		d.QualityScore = a.verdict.Overall
		if err := e.store.CreateDeliverable(ctx, d); err != nil {
			return nil, err
		}
		if err := e.audit.Append(ctx, core.NewAuditEntry(
			task.TenantID, string(task.Agent), core.AuditDeliverableCreated, "deliverable", d.ID,
			map[string]any{"task_id": task.ID, "type": d.Type, "quality": d.QualityScore},
		)); err != nil {
			return nil, err
		}
		deliverables = append(deliverables, d)
	}
	return deliverables, nil
}

// complete finalizes a successful run: terminal task update, audit entry and
// the atomic goal usage rollup.
func (e *Executor) complete(
	ctx context.Context,
	task *core.Task,
	goal *core.Goal,
	start time.Time,
	tokens int,
	a *attempt,
	deliverables []*core.Deliverable,
) Result {
	now := time.Now().UTC()
	score := a.verdict.Overall

	task.Status = core.TaskCompleted
	task.Summary = a.summary
	task.QualityScore = &score
	task.TokensUsed = tokens
	task.Duration = time.Since(start)
	task.CompletedAt = &now
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return e.fail(ctx, task, goal, start, tokens, fmt.Errorf("finalize task: %w", err))
	}

	e.appendAudit(ctx, core.NewAuditEntry(
		task.TenantID, string(task.Agent), core.AuditTaskCompleted, "task", task.ID,
		map[string]any{"quality": score, "retries": task.RetryCount, "deliverables": len(deliverables)},
	))
	e.rollUpUsage(ctx, goal, tokens)
	e.opts.Logger.Info("task completed",
		"task_id", task.ID, "agent", task.Agent, "quality", score,
		"retries", task.RetryCount, "tokens", tokens)

	return Result{
		TaskID:       task.ID,
		Agent:        task.Agent,
		Status:       core.TaskCompleted,
		Summary:      a.summary,
		Deliverables: deliverables,
		TokensUsed:   tokens,
		Duration:     task.Duration,
		QualityScore: &score,
	}
}

// fail converts any terminal problem into a failure-shaped result. Errors
// raised while recording the failure itself are logged and swallowed; the
// orchestrator must keep going with the remaining tasks either way.
func (e *Executor) fail(ctx context.Context, task *core.Task, goal *core.Goal, start time.Time, tokens int, cause error) Result {
	now := time.Now().UTC()

	task.Status = core.TaskFailed
	task.Error = cause.Error()
	task.TokensUsed = tokens
	task.Duration = time.Since(start)
	task.CompletedAt = &now
	task.Summary = "Failed: " + cause.Error()
	if err := e.store.UpdateTask(ctx, task); err != nil {
		e.opts.Logger.Error("could not record task failure", "task_id", task.ID, "error", err)
	}

	e.appendAudit(ctx, core.NewAuditEntry(
		task.TenantID, string(task.Agent), core.AuditTaskFailed, "task", task.ID,
		map[string]any{"error": cause.Error(), "retries": task.RetryCount},
	))
	if tokens > 0 {
		e.rollUpUsage(ctx, goal, tokens)
	}
	e.opts.Logger.Warn("task failed", "task_id", task.ID, "agent", task.Agent, "error", cause)

	return Result{
		TaskID:     task.ID,
		Agent:      task.Agent,
		Status:     core.TaskFailed,
		Summary:    task.Summary,
		TokensUsed: tokens,
		Duration:   task.Duration,
		Error:      cause.Error(),
	}
}

// rollUpUsage increments the parent goal's aggregate counters atomically so
// concurrently finishing tasks never lose updates.
func (e *Executor) rollUpUsage(ctx context.Context, goal *core.Goal, tokens int) {
	cost := float64(tokens) * e.opts.CostPerToken
	if err := e.store.AddGoalUsage(ctx, goal.ID, tokens, cost); err != nil {
		e.opts.Logger.Error("could not roll up goal usage", "goal_id", goal.ID, "error", err)
	}
}

// appendAudit writes an entry, logging rather than failing the task when the
// audit log itself is unavailable.
func (e *Executor) appendAudit(ctx context.Context, entry core.AuditEntry) {
	if err := e.audit.Append(ctx, entry); err != nil {
		e.opts.Logger.Error("could not append audit entry", "action", entry.Action, "error", err)
	}
}
