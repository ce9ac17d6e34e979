package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmesh/goalmesh/core"
)

func snapshot() core.ContextSnapshot {
	return core.ContextSnapshot{
		GoalID:   "g1",
		TenantID: "t1",
		Command:  "announce the new plan tiers",
		Intent:   core.IntentContent,
		Priority: core.PriorityHigh,
	}
}

func TestBuildPromptBasics(t *testing.T) {
	b := NewBuilder()
	out, err := b.BuildPrompt(core.AgentCopywriter, snapshot())
	require.NoError(t, err)

	assert.Contains(t, out, "You are Copywriter")
	assert.Contains(t, out, "announce the new plan tiers")
	assert.Contains(t, out, "content / high priority")
	assert.Contains(t, out, `"outputs"`)
	assert.NotContains(t, out, "BUSINESS PROFILE")
	assert.NotContains(t, out, "WORK ALREADY COMPLETED")
}

func TestBuildPromptUnknownAgent(t *testing.T) {
	b := NewBuilder()
	_, err := b.BuildPrompt(core.AgentID("wizard"), snapshot())
	assert.Error(t, err)
}

func TestBuildPromptBusinessProfile(t *testing.T) {
	b := NewBuilder(WithBusiness(map[string]string{
		"name": "Acme Studio",
		"tone": "warm and direct",
	}))
	out, err := b.BuildPrompt(core.AgentOutreach, snapshot())
	require.NoError(t, err)
	assert.Contains(t, out, "BUSINESS PROFILE")
	assert.Contains(t, out, "name: Acme Studio")
	assert.Contains(t, out, "tone: warm and direct")
}

func TestBuildPromptAgentExtras(t *testing.T) {
	b := NewBuilder(WithAgentExtras(map[core.AgentID]string{
		core.AgentCopywriter: "No exclamation marks.",
	}))

	out, err := b.BuildPrompt(core.AgentCopywriter, snapshot())
	require.NoError(t, err)
	assert.Contains(t, out, "ADDITIONAL GUIDANCE")
	assert.Contains(t, out, "No exclamation marks.")

	// Other agents do not inherit the copywriter's guidance.
	out, err = b.BuildPrompt(core.AgentAnalyst, snapshot())
	require.NoError(t, err)
	assert.NotContains(t, out, "ADDITIONAL GUIDANCE")
}

func TestBuildPromptCompletedWork(t *testing.T) {
	snap := snapshot()
	snap.Completed = []core.TaskDigest{
		{Agent: core.AgentAnalyst, Summary: "Segmented the audience into three tiers"},
	}
	b := NewBuilder()
	out, err := b.BuildPrompt(core.AgentCopywriter, snap)
	require.NoError(t, err)
	assert.Contains(t, out, "WORK ALREADY COMPLETED")
	assert.Contains(t, out, "Analyst: Segmented the audience into three tiers")
}
