// Package planner decomposes a free-text business command into a
// dependency-aware set of agent tasks. Decomposition leans on the completion
// service; when the service fails or returns garbage the planner silently
// downgrades to a single generalist task carrying the original command, so a
// goal is never left without at least one task.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/extract"
	"github.com/goalmesh/goalmesh/logging"
	"github.com/goalmesh/goalmesh/model"
)

// maxPlannedTasks caps how many tasks one command may fan out into.
const maxPlannedTasks = 10

// decompositionPrompt is the fixed system prompt for the planning call.
const decompositionPrompt = `You are the planning brain of an autonomous business assistant. Decompose the user's command into the minimum set of agent tasks.

Available agents:
- strategist: marketing strategy, positioning, campaign structure
- copywriter: posts, landing copy, long-form content
- outreach: personalized outbound messages and email sequences
- analyst: data analysis and decision-ready reports
- scheduler: content calendars, send plans, follow-up cadences
- generalist: anything that fits none of the above

Rules:
- Prefer ONE task for a simple command; split only when work is genuinely separate.
- depends_on lists zero-based indices of tasks whose output this task needs.
- Each task's instructions must be self-contained and actionable.

Respond with a single JSON object:
{"intent": "content|outreach|analysis|scheduling|mixed", "priority": "low|normal|high|urgent", "tasks": [{"agent": "<agent id>", "instructions": "<what to do>", "depends_on": [0]}]}
Return only the JSON object.`

// PlanResult is the planner's accepted decomposition of one command.
type PlanResult struct {
	Intent   core.IntentTag  `json:"intent"`
	Priority core.Priority   `json:"priority"`
	Tasks    []core.TaskSpec `json:"tasks"`
	// Fallback reports that decomposition failed and the single-task
	// downgrade was applied.
	Fallback bool `json:"fallback,omitempty"`
}

// Options configures a Planner.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Planner turns commands into task plans via the completion client. It
// performs no retries of its own; one garbled decomposition call is one
// fallback plan.
type Planner struct {
	client model.CompletionClient
	logger logging.Logger
}

// New constructs a Planner.
func New(client model.CompletionClient, optFns ...func(o *Options)) *Planner {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Planner{client: client, logger: opts.Logger}
}

// Plan decomposes the command. The returned plan always contains at least
// one task; the only error is an empty command.
func (p *Planner) Plan(ctx context.Context, command string) (*PlanResult, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("planner: empty command")
	}

	completion, err := p.client.Complete(ctx, model.Request{
		System:       decompositionPrompt,
		Instructions: command,
	})
	if err != nil {
		p.logger.Warn("decomposition call failed, using fallback plan", "error", err)
		return fallbackPlan(command), nil
	}

	obj, ok := extract.Object(completion.Text)
	if !ok {
		p.logger.Warn("decomposition response had no plan object, using fallback plan")
		return fallbackPlan(command), nil
	}

	tasks := p.parseTasks(obj)
	if len(tasks) == 0 {
		p.logger.Warn("decomposition yielded no usable tasks, using fallback plan")
		return fallbackPlan(command), nil
	}

	result := &PlanResult{
		Intent:   core.ParseIntentTag(extract.String(obj, "intent")),
		Priority: core.ParsePriority(extract.String(obj, "priority")),
		Tasks:    tasks,
	}
	p.logger.Info("command decomposed", "tasks", len(tasks), "intent", result.Intent)
	return result, nil
}

// parseTasks maps the extracted plan object to task specs, downgrading
// unknown agent identifiers to the generalist and dropping entries without
// instructions. Dependency indices outside the final task list are dropped.
func (p *Planner) parseTasks(obj map[string]any) []core.TaskSpec {
	raw := extract.List(obj, "tasks")
	if len(raw) > maxPlannedTasks {
		raw = raw[:maxPlannedTasks]
	}

	var tasks []core.TaskSpec
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		instructions := strings.TrimSpace(extract.String(m, "instructions"))
		if instructions == "" {
			continue
		}

		agent, err := core.ParseAgentID(extract.String(m, "agent"))
		if err != nil {
			p.logger.Warn("unknown agent in plan, assigning generalist", "agent", extract.String(m, "agent"))
			agent = core.AgentGeneralist
		}

		spec := core.TaskSpec{Agent: agent, Instructions: instructions}
		for _, dep := range extract.List(m, "depends_on") {
			if idx, ok := dep.(float64); ok {
				spec.DependsOn = append(spec.DependsOn, int(idx))
			}
		}
		tasks = append(tasks, spec)
	}

	// Validate dependency indices against the surviving task list; an
	// index pointing at a dropped or out-of-range entry is advisory noise.
	for i := range tasks {
		var deps []int
		for _, d := range tasks[i].DependsOn {
			if d >= 0 && d < len(tasks) && d != i {
				deps = append(deps, d)
			}
		}
		tasks[i].DependsOn = deps
	}

	return tasks
}

// fallbackPlan is the single-task downgrade: the generalist gets the
// original command verbatim.
func fallbackPlan(command string) *PlanResult {
	return &PlanResult{
		Intent:   core.IntentMixed,
		Priority: core.PriorityNormal,
		Tasks: []core.TaskSpec{
			{Agent: core.AgentGeneralist, Instructions: command},
		},
		Fallback: true,
	}
}
