package core

// ContextSnapshot is the read-only view of a goal handed to the prompt
// builder so agent prompts can reference the surrounding work without
// touching mutable engine state.
type ContextSnapshot struct {
	GoalID    string            `json:"goal_id"`
	TenantID  string            `json:"tenant_id"`
	Command   string            `json:"command"`
	Intent    IntentTag         `json:"intent"`
	Priority  Priority          `json:"priority"`
	Business  map[string]string `json:"business,omitempty"`
	Completed []TaskDigest      `json:"completed,omitempty"`
}

// TaskDigest summarizes a finished sibling task for inclusion in downstream
// prompts.
type TaskDigest struct {
	Agent   AgentID `json:"agent"`
	Summary string  `json:"summary"`
}

// PromptBuilder produces the system prompt for a given agent and context
// snapshot. Implementations are pure functions of their inputs; the engine
// does not cache results.
type PromptBuilder interface {
	BuildPrompt(agent AgentID, snapshot ContextSnapshot) (string, error)
}

// PromptBuilderFunc adapts an ordinary function to the PromptBuilder
// interface.
type PromptBuilderFunc func(agent AgentID, snapshot ContextSnapshot) (string, error)

// BuildPrompt implements PromptBuilder.
func (f PromptBuilderFunc) BuildPrompt(agent AgentID, snapshot ContextSnapshot) (string, error) {
	return f(agent, snapshot)
}
