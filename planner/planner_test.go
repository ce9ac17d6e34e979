package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/internal/testutil"
)

func TestPlanEmptyCommand(t *testing.T) {
	p := New(testutil.NewScriptedClient())
	_, err := p.Plan(context.Background(), "   ")
	assert.Error(t, err)
}

func TestPlanDecomposesCommand(t *testing.T) {
	client := testutil.NewScriptedClient().Respond(testutil.PlanJSON("content", "high",
		core.TaskSpec{Agent: core.AgentAnalyst, Instructions: "research the audience"},
		core.TaskSpec{Agent: core.AgentCopywriter, Instructions: "draft three posts", DependsOn: []int{0}},
	))
	p := New(client)

	plan, err := p.Plan(context.Background(), "launch a content push")
	require.NoError(t, err)
	assert.False(t, plan.Fallback)
	assert.Equal(t, core.IntentContent, plan.Intent)
	assert.Equal(t, core.PriorityHigh, plan.Priority)
	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, core.AgentAnalyst, plan.Tasks[0].Agent)
	assert.Equal(t, []int{0}, plan.Tasks[1].DependsOn)
}

func TestPlanFallsBackOnCallFailure(t *testing.T) {
	client := testutil.NewScriptedClient().Fail(errors.New("transport down"))
	p := New(client)

	plan, err := p.Plan(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.True(t, plan.Fallback)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, core.AgentGeneralist, plan.Tasks[0].Agent)
	assert.Equal(t, "do the thing", plan.Tasks[0].Instructions)
}

func TestPlanFallsBackOnGarbledResponse(t *testing.T) {
	client := testutil.NewScriptedClient().Respond("sorry, I cannot produce a plan right now")
	p := New(client)

	plan, err := p.Plan(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.True(t, plan.Fallback)
}

func TestPlanFallsBackWhenNoUsableTasks(t *testing.T) {
	// Object parses but every entry is missing instructions.
	client := testutil.NewScriptedClient().Respond(
		`{"intent": "content", "tasks": [{"agent": "copywriter", "instructions": "  "}]}`)
	p := New(client)

	plan, err := p.Plan(context.Background(), "write stuff")
	require.NoError(t, err)
	assert.True(t, plan.Fallback)
}

func TestPlanDowngradesUnknownAgent(t *testing.T) {
	client := testutil.NewScriptedClient().Respond(
		`{"intent": "analysis", "priority": "normal", "tasks": [{"agent": "wizard", "instructions": "conjure a report"}]}`)
	p := New(client)

	plan, err := p.Plan(context.Background(), "report please")
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, core.AgentGeneralist, plan.Tasks[0].Agent)
}

func TestPlanDropsInvalidDependencyIndices(t *testing.T) {
	client := testutil.NewScriptedClient().Respond(
		`{"tasks": [
			{"agent": "analyst", "instructions": "research", "depends_on": [0, 5, -1]},
			{"agent": "copywriter", "instructions": "write", "depends_on": [0]}
		]}`)
	p := New(client)

	plan, err := p.Plan(context.Background(), "research then write")
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 2)
	// Self-references and out-of-range indices are dropped.
	assert.Empty(t, plan.Tasks[0].DependsOn)
	assert.Equal(t, []int{0}, plan.Tasks[1].DependsOn)
}

func TestPlanCapsTaskCount(t *testing.T) {
	specs := make([]core.TaskSpec, 0, maxPlannedTasks+5)
	for i := 0; i < maxPlannedTasks+5; i++ {
		specs = append(specs, core.TaskSpec{Agent: core.AgentGeneralist, Instructions: "step"})
	}
	client := testutil.NewScriptedClient().Respond(testutil.PlanJSON("mixed", "normal", specs...))
	p := New(client)

	plan, err := p.Plan(context.Background(), "giant command")
	require.NoError(t, err)
	assert.Len(t, plan.Tasks, maxPlannedTasks)
}
