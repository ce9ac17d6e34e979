package goalmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmesh/goalmesh/config"
	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/internal/testutil"
)

func scriptedRun() *testutil.ScriptedClient {
	return testutil.NewScriptedClient().
		Respond(testutil.PlanJSON("content", "normal",
			core.TaskSpec{Agent: core.AgentCopywriter, Instructions: "write the post"})).
		Respond(testutil.OutputJSON("Wrote the post", "Launch post")).
		Respond(testutil.VerdictJSON(85, ""))
}

func TestExecuteGoalFacade(t *testing.T) {
	mesh := New(scriptedRun())

	res, err := mesh.ExecuteGoal(context.Background(), "tenant-1", "announce the launch")
	require.NoError(t, err)
	assert.Equal(t, core.GoalCompleted, res.Status)
	assert.Contains(t, res.Summary, "Completed 1/1 tasks")

	deliverables, err := mesh.Deliverables(context.Background(), res.GoalID)
	require.NoError(t, err)
	require.Len(t, deliverables, 1)
	assert.Equal(t, "Launch post", deliverables[0].Title)

	trail, err := mesh.AuditTrail(context.Background(), "tenant-1", "")
	require.NoError(t, err)
	require.NotEmpty(t, trail)
	assert.Equal(t, core.AuditGoalCreated, trail[0].Action)

	shipped, err := mesh.ShipDeliverable(context.Background(), deliverables[0].ID, "email", "list@acme.example")
	require.NoError(t, err)
	assert.Equal(t, core.DeliverableShipped, shipped.Status)

	assert.False(t, mesh.Cancel(res.GoalID))
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
model:
  provider: mock
engine:
  max_concurrent_tasks: 1
  pass_threshold: 60
limits:
  goals_per_hour: 1
  blocked_channels: [sms]
business:
  name: Acme
storage:
  driver: memory
`))
	require.NoError(t, err)

	mesh, err := NewFromConfig(scriptedRun(), cfg)
	require.NoError(t, err)

	res, err := mesh.ExecuteGoal(context.Background(), "tenant-1", "announce the launch")
	require.NoError(t, err)
	assert.Equal(t, core.GoalCompleted, res.Status)

	// The configured rate limit kicks in on the second goal.
	res2, err := mesh.ExecuteGoal(context.Background(), "tenant-1", "another goal")
	require.NoError(t, err)
	assert.Equal(t, core.GoalFailed, res2.Status)
	assert.Contains(t, res2.Summary, "rate limit")

	// The configured blocked channel is enforced at dispatch time.
	deliverables, err := mesh.Deliverables(context.Background(), res.GoalID)
	require.NoError(t, err)
	require.NotEmpty(t, deliverables)
	_, err = mesh.ShipDeliverable(context.Background(), deliverables[0].ID, "sms", "+15550100")
	assert.Error(t, err)
}
