package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmesh/goalmesh/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.Store    = (*Store)(nil)
	_ core.AuditLog = (*AuditLog)(nil)
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGoalRoundTrip(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	g := core.NewGoal("t1", "write a launch post")
	g.Plan = []core.TaskSpec{
		{Agent: core.AgentAnalyst, Instructions: "research"},
		{Agent: core.AgentCopywriter, Instructions: "write", DependsOn: []int{0}},
	}
	g.TotalTasks = 2
	require.NoError(t, s.CreateGoal(ctx, g))

	got, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Command, got.Command)
	assert.Equal(t, core.GoalPlanning, got.Status)
	require.Len(t, got.Plan, 2)
	assert.Equal(t, []int{0}, got.Plan[1].DependsOn)
	assert.Nil(t, got.QualityScore)
	assert.Nil(t, got.StartedAt)
	assert.True(t, g.CreatedAt.Equal(got.CreatedAt))

	now := time.Now().UTC()
	score := 87.5
	g.Status = core.GoalCompleted
	g.CompletedTasks = 2
	g.QualityScore = &score
	g.Summary = "All done"
	g.StartedAt = &now
	g.CompletedAt = &now
	require.NoError(t, s.UpdateGoal(ctx, g))

	got, err = s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, core.GoalCompleted, got.Status)
	assert.Equal(t, "All done", got.Summary)
	require.NotNil(t, got.QualityScore)
	assert.InDelta(t, 87.5, *got.QualityScore, 0.001)
	require.NotNil(t, got.CompletedAt)

	_, err = s.GetGoal(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateGoal(ctx, core.NewGoal("t1", "x")), core.ErrNotFound)
}

func TestAddGoalUsageIncrements(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	g := core.NewGoal("t1", "cmd")
	require.NoError(t, s.CreateGoal(ctx, g))
	require.NoError(t, s.AddGoalUsage(ctx, g.ID, 100, 0.25))
	require.NoError(t, s.AddGoalUsage(ctx, g.ID, 50, 0.10))

	got, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, got.TokensUsed)
	assert.InDelta(t, 0.35, got.EstimatedCost, 1e-9)

	assert.ErrorIs(t, s.AddGoalUsage(ctx, "missing", 1, 0.1), core.ErrNotFound)
}

func TestUpdateGoalDoesNotTouchUsage(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	g := core.NewGoal("t1", "cmd")
	require.NoError(t, s.CreateGoal(ctx, g))
	require.NoError(t, s.AddGoalUsage(ctx, g.ID, 200, 0.6))

	stale := *g
	stale.Status = core.GoalExecuting
	require.NoError(t, s.UpdateGoal(ctx, &stale))

	got, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, core.GoalExecuting, got.Status)
	assert.Equal(t, 200, got.TokensUsed)
}

func TestTaskRoundTripAndListing(t *testing.T) {
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()

	g := core.NewGoal("t1", "cmd")
	require.NoError(t, s.CreateGoal(ctx, g))

	t1 := core.NewTask(g.ID, "t1", core.AgentAnalyst, "research")
	t2 := core.NewTask(g.ID, "t1", core.AgentCopywriter, "write")
	t2.DependsOn = []string{t1.ID}
	t2.CreatedAt = t1.CreatedAt.Add(time.Millisecond)
	require.NoError(t, s.CreateTask(ctx, t1))
	require.NoError(t, s.CreateTask(ctx, t2))

	got, err := s.GetTask(ctx, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, core.AgentCopywriter, got.Agent)
	assert.Equal(t, []string{t1.ID}, got.DependsOn)
	assert.Equal(t, core.TaskPending, got.Status)

	score := 91.0
	t1.Status = core.TaskCompleted
	t1.Summary = "Researched"
	t1.QualityScore = &score
	t1.TokensUsed = 120
	t1.Duration = 3 * time.Second
	require.NoError(t, s.UpdateTask(ctx, t1))

	got, err = s.GetTask(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, got.Status)
	assert.Equal(t, 3*time.Second, got.Duration)
	require.NotNil(t, got.QualityScore)
	assert.InDelta(t, 91.0, *got.QualityScore, 0.001)

	tasks, err := s.ListTasksByGoal(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, t1.ID, tasks[0].ID)
	assert.Equal(t, t2.ID, tasks[1].ID)
}

func TestDeliverableRoundTrip(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	g := core.NewGoal("t1", "cmd")
	require.NoError(t, s.CreateGoal(ctx, g))
	task := core.NewTask(g.ID, "t1", core.AgentCopywriter, "write")
	require.NoError(t, s.CreateTask(ctx, task))

	d := core.NewDeliverable(g.ID, task.ID, "t1", core.AgentCopywriter, core.DeliverablePost, "Launch", "We are live.")
	d.Scores = map[core.Dimension]float64{core.DimRelevance: 90, core.DimClarity: 85}
	d.QualityScore = 87.5
	require.NoError(t, s.CreateDeliverable(ctx, d))

	got, err := s.GetDeliverable(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DeliverableDraft, got.Status)
	assert.Equal(t, "We are live.", got.Body)
	assert.InDelta(t, 90.0, got.Scores[core.DimRelevance], 0.001)
	assert.Empty(t, got.ShippedVia)
	assert.Nil(t, got.ShippedAt)

	now := time.Now().UTC()
	d.Status = core.DeliverableShipped
	d.ShippedVia = "email"
	d.ShippedAt = &now
	require.NoError(t, s.UpdateDeliverable(ctx, d))

	got, err = s.GetDeliverable(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DeliverableShipped, got.Status)
	assert.Equal(t, "email", got.ShippedVia)
	require.NotNil(t, got.ShippedAt)

	byGoal, err := s.ListDeliverablesByGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, byGoal, 1)
	byTask, err := s.ListDeliverablesByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, byTask, 1)
}

func TestAuditLogRoundTrip(t *testing.T) {
	l := NewAuditLog(openTestDB(t))
	ctx := context.Background()

	e1 := core.NewAuditEntry("t1", "engine", core.AuditGoalCreated, "goal", "g1", map[string]any{"command": "write"})
	e2 := core.NewAuditEntry("t1", "copywriter", core.AuditTaskStarted, "task", "task-1", nil)
	e2.Timestamp = e1.Timestamp.Add(time.Millisecond)
	require.NoError(t, l.Append(ctx, e1))
	require.NoError(t, l.Append(ctx, e2))

	// Duplicate identifiers violate append-only semantics.
	assert.Error(t, l.Append(ctx, e1))

	entries, err := l.List(ctx, "t1", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, e1.ID, entries[0].ID)
	assert.Equal(t, "write", entries[0].Detail["command"])
	assert.Equal(t, core.AuditTaskStarted, entries[1].Action)

	filtered, err := l.List(ctx, "t1", "task-1")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, e2.ID, filtered[0].ID)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}
