// Package goalmesh provides a high-level façade over the goal engine and its
// services (store, audit log, policy guard, prompt builder & logging) for
// turning free-text business commands into planned, executed and verified
// deliverables. Most applications interact with this package by:
//  1. Creating a GoalMesh via New() with a completion client (optionally
//     overriding the default in-memory services)
//  2. Executing commands with ExecuteGoal and reading the returned report
//  3. Shipping approved deliverables with ShipDeliverable
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply the SQLite-backed store
// and audit log, a rate-limiting policy guard and a structured logger.
package goalmesh

import (
	"context"
	"fmt"

	"github.com/goalmesh/goalmesh/config"
	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/engine"
	"github.com/goalmesh/goalmesh/logging"
	"github.com/goalmesh/goalmesh/model"
	"github.com/goalmesh/goalmesh/policy"
	"github.com/goalmesh/goalmesh/prompt"
	"github.com/goalmesh/goalmesh/store/sqlite"
)

// Options configures the GoalMesh instance.
type Options struct {
	// EngineConfig tunes concurrency, retries and verification.
	EngineConfig engine.Config

	// Stores (default to in-memory implementations if not provided)
	Store core.Store
	Audit core.AuditLog

	// Guard gates goal creation and outbound dispatch. Defaults to allow-all.
	Guard core.PolicyGuard

	// Prompts builds per-agent system prompts. Defaults to the built-in
	// template builder with no business profile.
	Prompts core.PromptBuilder

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// GoalMesh is the high-level façade aggregating the underlying engine and
// services.
type GoalMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a GoalMesh around a completion client with optional overrides.
// Any unset service is initialized with an in-memory implementation.
func New(client model.CompletionClient, optFns ...func(o *Options)) *GoalMesh {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(client, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		if opts.Store != nil {
			o.Store = opts.Store
		}
		if opts.Audit != nil {
			o.Audit = opts.Audit
		}
		if opts.Guard != nil {
			o.Guard = opts.Guard
		}
		if opts.Prompts != nil {
			o.Prompts = opts.Prompts
		}
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
	})

	return &GoalMesh{opts: opts, engine: eng}
}

// NewFromConfig assembles a GoalMesh from a parsed goalmesh.yml: engine
// tuning, rate limits, business profile, per-agent guidance and storage
// driver all come from the config.
func NewFromConfig(client model.CompletionClient, cfg *config.Config, optFns ...func(o *Options)) (*GoalMesh, error) {
	engCfg := engine.DefaultConfig
	if cfg.Engine.MaxConcurrentTasks > 0 {
		engCfg.MaxConcurrentTasks = cfg.Engine.MaxConcurrentTasks
	}
	if cfg.Engine.MaxRetries > 0 {
		engCfg.MaxRetries = cfg.Engine.MaxRetries
	}
	if cfg.Engine.PassThreshold > 0 {
		engCfg.PassThreshold = cfg.Engine.PassThreshold
	}
	if cfg.Engine.CostPerToken > 0 {
		engCfg.CostPerToken = cfg.Engine.CostPerToken
	}
	if d := cfg.CallTimeout(); d > 0 {
		engCfg.CallTimeout = d
	}
	engCfg.BlockOnFailedDeps = cfg.Engine.BlockOnFailedDeps
	engCfg.AgentMaxRetries = cfg.AgentRetries()

	guard := policy.NewGuard(policy.Limits{
		GoalsPerHour:      cfg.Limits.GoalsPerHour,
		DispatchesPerHour: cfg.Limits.DispatchesPerHour,
		MaxSpendPerHour:   cfg.Limits.MaxSpendPerHour,
		BlockedChannels:   cfg.Limits.BlockedChannels,
	})

	prompts := prompt.NewBuilder(
		prompt.WithBusiness(cfg.Business),
		prompt.WithAgentExtras(cfg.AgentGuidance()),
	)

	base := []func(o *Options){
		func(o *Options) {
			o.EngineConfig = engCfg
			o.Guard = guard
			o.Prompts = prompts
		},
	}

	if cfg.Storage.Driver == "sqlite" {
		db, err := sqlite.Open(sqlite.Config{Workspace: cfg.Storage.Path})
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		base = append(base, func(o *Options) {
			o.Store = sqlite.NewStore(db)
			o.Audit = sqlite.NewAuditLog(db)
		})
	}

	return New(client, append(base, optFns...)...), nil
}

// ExecuteGoal runs one command end to end and returns the execution report.
func (m *GoalMesh) ExecuteGoal(ctx context.Context, tenantID, command string) (*engine.GoalResult, error) {
	return m.engine.ExecuteGoal(ctx, tenantID, command)
}

// Cancel requests cooperative cancellation of an active goal. Returns false
// when the goal is not currently executing.
func (m *GoalMesh) Cancel(goalID string) bool { return m.engine.Cancel(goalID) }

// ShipDeliverable dispatches a deliverable via the given channel, subject to
// the policy guard.
func (m *GoalMesh) ShipDeliverable(ctx context.Context, deliverableID, channel, target string) (*core.Deliverable, error) {
	return m.engine.ShipDeliverable(ctx, deliverableID, channel, target)
}

// Deliverables lists every deliverable produced for a goal.
func (m *GoalMesh) Deliverables(ctx context.Context, goalID string) ([]*core.Deliverable, error) {
	return m.engine.Store().ListDeliverablesByGoal(ctx, goalID)
}

// AuditTrail returns the append-only audit entries for a tenant, optionally
// filtered to a single resource.
func (m *GoalMesh) AuditTrail(ctx context.Context, tenantID, resourceID string) ([]core.AuditEntry, error) {
	return m.engine.AuditLog().List(ctx, tenantID, resourceID)
}
