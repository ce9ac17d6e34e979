package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goalmesh/goalmesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.PolicyGuard = (*Guard)(nil)

func TestGoalRateLimit(t *testing.T) {
	g := NewGuard(Limits{GoalsPerHour: 2})
	ctx := context.Background()

	assert.True(t, g.CheckGoalAllowed(ctx, "t1").Allowed)
	assert.True(t, g.CheckGoalAllowed(ctx, "t1").Allowed)

	d := g.CheckGoalAllowed(ctx, "t1")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "goal rate limit")

	// Tenants are isolated.
	assert.True(t, g.CheckGoalAllowed(ctx, "t2").Allowed)
}

func TestGoalWindowSlides(t *testing.T) {
	now := time.Now()
	g := NewGuard(Limits{GoalsPerHour: 1}, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	assert.True(t, g.CheckGoalAllowed(ctx, "t1").Allowed)
	assert.False(t, g.CheckGoalAllowed(ctx, "t1").Allowed)

	// An hour later the old entry falls out of the window.
	now = now.Add(61 * time.Minute)
	assert.True(t, g.CheckGoalAllowed(ctx, "t1").Allowed)
}

func TestDispatchRateLimit(t *testing.T) {
	g := NewGuard(Limits{DispatchesPerHour: 1})
	ctx := context.Background()

	assert.True(t, g.CheckDispatchAllowed(ctx, "t1", "email", "a@b.c").Allowed)
	d := g.CheckDispatchAllowed(ctx, "t1", "email", "a@b.c")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "dispatch rate limit")
}

func TestSpendLimit(t *testing.T) {
	now := time.Now()
	g := NewGuard(Limits{MaxSpendPerHour: 0.05}, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	assert.True(t, g.CheckGoalAllowed(ctx, "t1").Allowed)
	g.RecordSpend("t1", 0.03)
	assert.True(t, g.CheckGoalAllowed(ctx, "t1").Allowed)

	g.RecordSpend("t1", 0.03)
	d := g.CheckGoalAllowed(ctx, "t1")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "spend limit")

	// Other tenants are unaffected.
	assert.True(t, g.CheckGoalAllowed(ctx, "t2").Allowed)

	// Spend ages out of the window.
	now = now.Add(61 * time.Minute)
	assert.True(t, g.CheckGoalAllowed(ctx, "t1").Allowed)
}

func TestRecordSpendIgnoresNonPositive(t *testing.T) {
	g := NewGuard(Limits{MaxSpendPerHour: 0.01})
	g.RecordSpend("t1", 0)
	g.RecordSpend("t1", -1)
	assert.True(t, g.CheckGoalAllowed(context.Background(), "t1").Allowed)
}

func TestBlockedChannel(t *testing.T) {
	g := NewGuard(Limits{BlockedChannels: []string{"sms"}})
	ctx := context.Background()

	d := g.CheckDispatchAllowed(ctx, "t1", "sms", "+15550100")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "blocked")

	assert.True(t, g.CheckDispatchAllowed(ctx, "t1", "email", "a@b.c").Allowed)
}

func TestZeroLimitsMeanUnlimited(t *testing.T) {
	g := NewGuard(Limits{})
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		assert.True(t, g.CheckGoalAllowed(ctx, "t1").Allowed)
		assert.True(t, g.CheckDispatchAllowed(ctx, "t1", "email", "a@b.c").Allowed)
	}
}
