package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/executor"
	"github.com/goalmesh/goalmesh/logging"
	"github.com/goalmesh/goalmesh/model"
	"github.com/goalmesh/goalmesh/planner"
	"github.com/goalmesh/goalmesh/prompt"
	"github.com/goalmesh/goalmesh/store"
	"github.com/goalmesh/goalmesh/verify"
)

// Config defines tuning parameters for the engine's operational behavior.
type Config struct {
	// MaxConcurrentTasks bounds the worker pool dispatching ready tasks.
	// Tasks never share mutable state, so any bound preserves observable
	// semantics. Set to 1 for strictly sequential execution.
	MaxConcurrentTasks int

	// BlockOnFailedDeps tightens dependency handling: when true, a task
	// whose dependency failed is marked failed without executing. The
	// default (false) treats the dependency graph as advisory ordering;
	// dependents still attempt with whatever context is available.
	BlockOnFailedDeps bool

	// CostPerToken prices token usage for goal cost rollups.
	CostPerToken float64

	// CallTimeout caps each completion call issued by the executor.
	CallTimeout time.Duration

	// PassThreshold overrides the verifier's pass bar when > 0.
	PassThreshold float64

	// MaxRetries overrides the per-task retry budget when > 0.
	MaxRetries int

	// AgentMaxRetries overrides the retry budget for individual agents,
	// taking precedence over MaxRetries for tasks assigned to them.
	AgentMaxRetries map[core.AgentID]int
}

// DefaultConfig provides production-ready default configuration values.
var DefaultConfig = Config{
	MaxConcurrentTasks: 3,
	CostPerToken:       executor.DefaultCostPerToken,
	CallTimeout:        model.DefaultCallTimeout,
	PassThreshold:      verify.PassThreshold,
	MaxRetries:         core.DefaultMaxRetries,
}

// Options configures an Engine instance using the functional options
// pattern. All services have in-memory defaults suitable for development
// and tests; production deployments supply a durable store/audit log and a
// structured logger.
type Options struct {
	// Config contains operational parameters for the engine behavior.
	Config Config

	// Store persists Goal/Task/Deliverable records. Defaults to the
	// in-memory implementation.
	Store core.Store

	// Audit receives the append-only event stream. Defaults to the
	// in-memory implementation.
	Audit core.AuditLog

	// Guard is consulted before goal creation and outbound dispatch.
	// Defaults to core.AllowAllGuard.
	Guard core.PolicyGuard

	// Prompts builds per-agent system prompts. Defaults to prompt.NewBuilder().
	Prompts core.PromptBuilder

	// Logger defaults to NoOp so the engine has no logging dependencies.
	Logger logging.Logger
}

// WithConfig sets the engine configuration.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithStore sets the entity store.
func WithStore(s core.Store) func(o *Options) {
	return func(o *Options) { o.Store = s }
}

// WithAuditLog sets the audit log.
func WithAuditLog(a core.AuditLog) func(o *Options) {
	return func(o *Options) { o.Audit = a }
}

// WithPolicyGuard sets the policy guard.
func WithPolicyGuard(g core.PolicyGuard) func(o *Options) {
	return func(o *Options) { o.Guard = g }
}

// WithPromptBuilder sets the prompt builder.
func WithPromptBuilder(p core.PromptBuilder) func(o *Options) {
	return func(o *Options) { o.Prompts = p }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Engine orchestrates goal execution. It is safe for concurrent use; each
// ExecuteGoal call owns its goal's state and tasks write only their own
// rows.
type Engine struct {
	store    core.Store
	audit    core.AuditLog
	guard    core.PolicyGuard
	planner  *planner.Planner
	executor *executor.Executor
	logger   logging.Logger
	config   Config

	// Active goal tracking for cooperative cancellation.
	activeGoals map[string]context.CancelFunc
	activeMu    sync.Mutex
}

// New creates an Engine around a completion client. The same client serves
// planning, generation and verification calls.
func New(client model.CompletionClient, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:  DefaultConfig,
		Store:   store.NewInMemoryStore(),
		Audit:   store.NewInMemoryAuditLog(),
		Guard:   core.AllowAllGuard{},
		Prompts: prompt.NewBuilder(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.MaxConcurrentTasks <= 0 {
		opts.Config.MaxConcurrentTasks = DefaultConfig.MaxConcurrentTasks
	}

	verifier := verify.New(client, func(o *verify.Options) {
		o.Threshold = opts.Config.PassThreshold
		o.Logger = opts.Logger
	})
	exec := executor.New(opts.Store, opts.Audit, client, verifier, opts.Prompts, func(o *executor.Options) {
		o.CostPerToken = opts.Config.CostPerToken
		o.CallTimeout = opts.Config.CallTimeout
		o.Logger = opts.Logger
	})
	plan := planner.New(client, func(o *planner.Options) {
		o.Logger = opts.Logger
	})

	return &Engine{
		store:       opts.Store,
		audit:       opts.Audit,
		guard:       opts.Guard,
		planner:     plan,
		executor:    exec,
		logger:      opts.Logger,
		config:      opts.Config,
		activeGoals: make(map[string]context.CancelFunc),
	}
}

// Store exposes the entity store for read access (report rendering,
// deliverable lookups).
func (e *Engine) Store() core.Store { return e.store }

// AuditLog exposes the append-only audit stream for read access.
func (e *Engine) AuditLog() core.AuditLog { return e.audit }

// GoalResult is what the caller of ExecuteGoal receives. Always populated
// with a summary, even on partial or total failure.
type GoalResult struct {
	GoalID        string            `json:"goal_id"`
	Status        core.GoalStatus   `json:"status"`
	Summary       string            `json:"summary"`
	QualityScore  *float64          `json:"quality_score,omitempty"`
	TaskResults   []executor.Result `json:"task_results,omitempty"`
	TokensUsed    int               `json:"tokens_used"`
	EstimatedCost float64           `json:"estimated_cost"`
}

// ExecuteGoal runs one command end to end: policy pre-flight, planning,
// dependency-ordered task execution and report compilation. The returned
// error is reserved for invalid arguments; operational failures come back
// as a failure-shaped GoalResult.
func (e *Engine) ExecuteGoal(ctx context.Context, tenantID, command string) (*GoalResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("engine: tenant id is required")
	}
	if command == "" {
		return nil, fmt.Errorf("engine: command is required")
	}

	if decision := e.guard.CheckGoalAllowed(ctx, tenantID); !decision.Allowed {
		e.logger.Warn("goal rejected by policy", "tenant_id", tenantID, "reason", decision.Reason)
		return &GoalResult{
			Status:  core.GoalFailed,
			Summary: "Goal not started: " + decision.Reason,
		}, nil
	}

	goal := core.NewGoal(tenantID, command)
	if err := e.store.CreateGoal(ctx, goal); err != nil {
		return &GoalResult{
			Status:  core.GoalFailed,
			Summary: "Goal not started: " + err.Error(),
		}, nil
	}
	e.appendAudit(ctx, core.NewAuditEntry(tenantID, "engine", core.AuditGoalCreated, "goal", goal.ID,
		map[string]any{"command": command}))

	// Register for cooperative cancellation.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.activeMu.Lock()
	e.activeGoals[goal.ID] = cancel
	e.activeMu.Unlock()
	defer func() {
		e.activeMu.Lock()
		delete(e.activeGoals, goal.ID)
		e.activeMu.Unlock()
	}()

	start := time.Now()
	result := e.run(runCtx, goal)
	e.logger.Info("goal finished",
		"goal_id", goal.ID, "status", result.Status,
		"tasks", len(result.TaskResults), "duration", time.Since(start))
	return result, nil
}

// Cancel requests cooperative cancellation of an active goal. In-flight
// completion calls finish and their output is persisted; no new calls are
// issued. Returns false when the goal is not currently executing.
func (e *Engine) Cancel(goalID string) bool {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	cancel, ok := e.activeGoals[goalID]
	if ok {
		cancel()
	}
	return ok
}

// run drives the goal from planning through report compilation. Any error
// escaping a phase converts the goal to failed with a summary.
func (e *Engine) run(ctx context.Context, goal *core.Goal) *GoalResult {
	tasks, err := e.planPhase(ctx, goal)
	if err != nil {
		return e.failGoal(ctx, goal, fmt.Errorf("planning: %w", err))
	}

	results := e.executePhase(ctx, goal, tasks)

	// After cancellation the partial work is already persisted; the final
	// report writes must still land, so they run on a detached context.
	cancelled := ctx.Err() != nil
	result := e.reportPhase(context.WithoutCancel(ctx), goal, tasks, results, cancelled)
	if rec, ok := e.guard.(spendRecorder); ok {
		rec.RecordSpend(goal.TenantID, result.EstimatedCost)
	}
	return result
}

// spendRecorder is implemented by guards that track estimated spend, such as
// policy.Guard. Guards without spend tracking are left alone.
type spendRecorder interface {
	RecordSpend(tenantID string, amount float64)
}

// planPhase invokes the planner and materializes task records with resolved
// dependency identifiers.
func (e *Engine) planPhase(ctx context.Context, goal *core.Goal) ([]*core.Task, error) {
	plan, err := e.planner.Plan(ctx, goal.Command)
	if err != nil {
		return nil, err
	}

	goal.Intent = plan.Intent
	goal.Priority = plan.Priority
	goal.Plan = plan.Tasks
	goal.TotalTasks = len(plan.Tasks)

	tasks := make([]*core.Task, len(plan.Tasks))
	for i, spec := range plan.Tasks {
		t := core.NewTask(goal.ID, goal.TenantID, spec.Agent, spec.Instructions)
		if e.config.MaxRetries > 0 {
			t.MaxRetries = e.config.MaxRetries
		}
		if n, ok := e.config.AgentMaxRetries[spec.Agent]; ok && n >= 0 {
			t.MaxRetries = n
		}
		tasks[i] = t
	}
	// Resolve plan indices to task identifiers now that all ids exist.
	for i, spec := range plan.Tasks {
		for _, dep := range spec.DependsOn {
			if dep >= 0 && dep < len(tasks) && dep != i {
				tasks[i].DependsOn = append(tasks[i].DependsOn, tasks[dep].ID)
			}
		}
	}
	for _, t := range tasks {
		if err := e.store.CreateTask(ctx, t); err != nil {
			return nil, fmt.Errorf("create task: %w", err)
		}
	}

	now := time.Now().UTC()
	goal.Status = core.GoalExecuting
	goal.StartedAt = &now
	if err := e.store.UpdateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("start goal: %w", err)
	}
	e.appendAudit(ctx, core.NewAuditEntry(goal.TenantID, "engine", core.AuditGoalPlanned, "goal", goal.ID,
		map[string]any{"tasks": len(tasks), "intent": goal.Intent, "fallback": plan.Fallback}))
	return tasks, nil
}

// executePhase dispatches tasks through a bounded worker pool, launching a
// task only once every dependency is terminal. Results are collected via a
// channel so the scheduler goroutine is the only writer of shared state.
func (e *Engine) executePhase(ctx context.Context, goal *core.Goal, tasks []*core.Task) []executor.Result {
	n := len(tasks)
	results := make([]executor.Result, n)
	terminal := make([]bool, n)
	launched := make([]bool, n)
	indexByID := make(map[string]int, n)
	for i, t := range tasks {
		indexByID[t.ID] = i
	}

	sem := make(chan struct{}, e.config.MaxConcurrentTasks)
	done := make(chan int)
	finished := 0
	inFlight := 0

	for finished < n {
		for i := range tasks {
			if launched[i] || !e.depsSatisfied(tasks[i], indexByID, terminal) {
				continue
			}
			if e.config.BlockOnFailedDeps && e.hasFailedDep(tasks[i], indexByID, results, terminal) {
				launched[i] = true
				results[i] = e.skipForFailedDep(ctx, tasks[i])
				terminal[i] = true
				finished++
				continue
			}

			launched[i] = true
			inFlight++
			snapshot := e.snapshot(goal, tasks, results, terminal)
			go func(i int, snapshot core.ContextSnapshot) {
				sem <- struct{}{}
				defer func() { <-sem }()
				results[i] = e.executor.Run(ctx, tasks[i], goal, snapshot)
				done <- i
			}(i, snapshot)
		}

		if inFlight == 0 {
			// Nothing running and nothing launchable: the remaining tasks
			// form a dependency cycle. Fail them rather than spin.
			for i := range tasks {
				if terminal[i] {
					continue
				}
				results[i] = e.skipForCycle(ctx, tasks[i])
				terminal[i] = true
				finished++
			}
			continue
		}

		i := <-done
		inFlight--
		terminal[i] = true
		finished++
	}

	return results
}

// depsSatisfied reports whether every dependency of the task is terminal.
// Dependencies pointing outside the goal's task set are ignored.
func (e *Engine) depsSatisfied(task *core.Task, indexByID map[string]int, terminal []bool) bool {
	for _, dep := range task.DependsOn {
		if idx, ok := indexByID[dep]; ok && !terminal[idx] {
			return false
		}
	}
	return true
}

// hasFailedDep reports whether any terminal dependency failed.
func (e *Engine) hasFailedDep(task *core.Task, indexByID map[string]int, results []executor.Result, terminal []bool) bool {
	for _, dep := range task.DependsOn {
		if idx, ok := indexByID[dep]; ok && terminal[idx] && results[idx].Status == core.TaskFailed {
			return true
		}
	}
	return false
}

// snapshot builds the context view handed to the prompt builder: the goal
// plus digests of every task completed so far.
func (e *Engine) snapshot(goal *core.Goal, tasks []*core.Task, results []executor.Result, terminal []bool) core.ContextSnapshot {
	snap := core.ContextSnapshot{
		GoalID:   goal.ID,
		TenantID: goal.TenantID,
		Command:  goal.Command,
		Intent:   goal.Intent,
		Priority: goal.Priority,
	}
	for i := range tasks {
		if terminal[i] && results[i].Status == core.TaskCompleted {
			snap.Completed = append(snap.Completed, core.TaskDigest{
				Agent:   results[i].Agent,
				Summary: results[i].Summary,
			})
		}
	}
	return snap
}

// skipForFailedDep marks a task failed without executing it (blocking
// dependency policy).
func (e *Engine) skipForFailedDep(ctx context.Context, task *core.Task) executor.Result {
	return e.skipTask(ctx, task, "dependency failed")
}

// skipForCycle marks a task failed because its dependencies can never
// become terminal.
func (e *Engine) skipForCycle(ctx context.Context, task *core.Task) executor.Result {
	return e.skipTask(ctx, task, "dependency cycle")
}

func (e *Engine) skipTask(ctx context.Context, task *core.Task, reason string) executor.Result {
	now := time.Now().UTC()
	task.Status = core.TaskFailed
	task.Error = reason
	task.Summary = "Failed: " + reason
	task.CompletedAt = &now
	if err := e.store.UpdateTask(ctx, task); err != nil {
		e.logger.Error("could not record skipped task", "task_id", task.ID, "error", err)
	}
	e.appendAudit(ctx, core.NewAuditEntry(task.TenantID, string(task.Agent), core.AuditTaskFailed, "task", task.ID,
		map[string]any{"error": reason}))
	return executor.Result{
		TaskID:  task.ID,
		Agent:   task.Agent,
		Status:  core.TaskFailed,
		Summary: task.Summary,
		Error:   reason,
	}
}

// failGoal converts the goal to the terminal failed state with an audit
// entry and a failure-shaped result.
func (e *Engine) failGoal(ctx context.Context, goal *core.Goal, cause error) *GoalResult {
	now := time.Now().UTC()
	goal.Status = core.GoalFailed
	goal.Summary = "Goal failed: " + cause.Error()
	goal.CompletedAt = &now
	if err := e.store.UpdateGoal(ctx, goal); err != nil {
		e.logger.Error("could not record goal failure", "goal_id", goal.ID, "error", err)
	}
	e.appendAudit(ctx, core.NewAuditEntry(goal.TenantID, "engine", core.AuditGoalFailed, "goal", goal.ID,
		map[string]any{"error": cause.Error()}))
	e.logger.Error("goal failed", "goal_id", goal.ID, "error", cause)
	return &GoalResult{
		GoalID:  goal.ID,
		Status:  core.GoalFailed,
		Summary: goal.Summary,
	}
}

// appendAudit writes an entry, logging when the audit log is unavailable.
func (e *Engine) appendAudit(ctx context.Context, entry core.AuditEntry) {
	if err := e.audit.Append(ctx, entry); err != nil {
		e.logger.Error("could not append audit entry", "action", entry.Action, "error", err)
	}
}
