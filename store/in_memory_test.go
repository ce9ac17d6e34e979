package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmesh/goalmesh/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.Store    = (*InMemoryStore)(nil)
	_ core.AuditLog = (*InMemoryAuditLog)(nil)
)

func TestGoalLifecycle(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	g := core.NewGoal("t1", "write a post")
	require.NoError(t, s.CreateGoal(ctx, g))
	assert.Error(t, s.CreateGoal(ctx, g))

	got, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Command, got.Command)

	// Returned records are copies.
	got.Command = "changed"
	again, _ := s.GetGoal(ctx, g.ID)
	assert.Equal(t, "write a post", again.Command)

	g.Status = core.GoalExecuting
	require.NoError(t, s.UpdateGoal(ctx, g))
	again, _ = s.GetGoal(ctx, g.ID)
	assert.Equal(t, core.GoalExecuting, again.Status)

	_, err = s.GetGoal(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateGoal(ctx, core.NewGoal("t1", "x")), core.ErrNotFound)
}

func TestUpdateGoalPreservesUsageCounters(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	g := core.NewGoal("t1", "cmd")
	require.NoError(t, s.CreateGoal(ctx, g))
	require.NoError(t, s.AddGoalUsage(ctx, g.ID, 100, 0.5))

	// An update from a stale snapshot must not clobber the counters.
	stale := *g
	stale.Status = core.GoalCompleted
	require.NoError(t, s.UpdateGoal(ctx, &stale))

	got, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, core.GoalCompleted, got.Status)
	assert.Equal(t, 100, got.TokensUsed)
	assert.InDelta(t, 0.5, got.EstimatedCost, 1e-9)
}

func TestAddGoalUsageConcurrent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	g := core.NewGoal("t1", "cmd")
	require.NoError(t, s.CreateGoal(ctx, g))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddGoalUsage(ctx, g.ID, 10, 0.01)
		}()
	}
	wg.Wait()

	got, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 500, got.TokensUsed)
	assert.InDelta(t, 0.5, got.EstimatedCost, 1e-6)

	assert.ErrorIs(t, s.AddGoalUsage(ctx, "missing", 1, 0.1), core.ErrNotFound)
}

func TestTaskLifecycleAndOrdering(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	g := core.NewGoal("t1", "cmd")
	require.NoError(t, s.CreateGoal(ctx, g))

	t1 := core.NewTask(g.ID, "t1", core.AgentAnalyst, "first")
	t2 := core.NewTask(g.ID, "t1", core.AgentCopywriter, "second")
	other := core.NewTask("other-goal", "t1", core.AgentGeneralist, "elsewhere")
	require.NoError(t, s.CreateTask(ctx, t1))
	require.NoError(t, s.CreateTask(ctx, t2))
	require.NoError(t, s.CreateTask(ctx, other))

	tasks, err := s.ListTasksByGoal(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "first", tasks[0].Instructions)
	assert.Equal(t, "second", tasks[1].Instructions)

	t1.Status = core.TaskCompleted
	require.NoError(t, s.UpdateTask(ctx, t1))
	got, err := s.GetTask(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, got.Status)
}

func TestDeliverableLifecycleAndListing(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	d1 := core.NewDeliverable("g1", "task-1", "t1", core.AgentCopywriter, core.DeliverablePost, "A", "body")
	d2 := core.NewDeliverable("g1", "task-2", "t1", core.AgentOutreach, core.DeliverableEmail, "B", "body")
	require.NoError(t, s.CreateDeliverable(ctx, d1))
	require.NoError(t, s.CreateDeliverable(ctx, d2))

	byGoal, err := s.ListDeliverablesByGoal(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, byGoal, 2)

	byTask, err := s.ListDeliverablesByTask(ctx, "task-2")
	require.NoError(t, err)
	require.Len(t, byTask, 1)
	assert.Equal(t, "B", byTask[0].Title)

	d1.Status = core.DeliverableShipped
	require.NoError(t, s.UpdateDeliverable(ctx, d1))
	got, err := s.GetDeliverable(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DeliverableShipped, got.Status)
}

func TestAuditLogAppendAndList(t *testing.T) {
	l := NewInMemoryAuditLog()
	ctx := context.Background()

	e1 := core.NewAuditEntry("t1", "engine", core.AuditGoalCreated, "goal", "g1", nil)
	e2 := core.NewAuditEntry("t1", "engine", core.AuditGoalPlanned, "goal", "g1", map[string]any{"tasks": 2})
	e3 := core.NewAuditEntry("t2", "engine", core.AuditGoalCreated, "goal", "g2", nil)
	require.NoError(t, l.Append(ctx, e1))
	require.NoError(t, l.Append(ctx, e2))
	require.NoError(t, l.Append(ctx, e3))
	assert.Equal(t, 3, l.Len())

	// Duplicate identifiers violate append-only semantics.
	assert.Error(t, l.Append(ctx, e1))

	entries, err := l.List(ctx, "t1", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, e1.ID, entries[0].ID)
	assert.Equal(t, e2.ID, entries[1].ID)

	byResource, err := l.List(ctx, "t2", "g2")
	require.NoError(t, err)
	require.Len(t, byResource, 1)
	assert.Equal(t, e3.ID, byResource[0].ID)
}
