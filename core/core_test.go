package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAgentID(t *testing.T) {
	for _, id := range Agents() {
		got, err := ParseAgentID(string(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	_, err := ParseAgentID("wizard")
	assert.Error(t, err)
	_, err = ParseAgentID("")
	assert.Error(t, err)
}

func TestAgentDisplayName(t *testing.T) {
	assert.Equal(t, "Outreach Specialist", AgentOutreach.DisplayName())
	// Identifiers outside the closed set fall back to themselves.
	assert.Equal(t, "wizard", AgentID("wizard").DisplayName())
}

func TestParseIntentTag(t *testing.T) {
	assert.Equal(t, IntentContent, ParseIntentTag("content"))
	assert.Equal(t, IntentMixed, ParseIntentTag("poetry"))
	assert.Equal(t, IntentMixed, ParseIntentTag(""))
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityUrgent, ParsePriority("urgent"))
	assert.Equal(t, PriorityNormal, ParsePriority("whenever"))
	assert.Equal(t, PriorityNormal, ParsePriority(""))
}

func TestParseDeliverableType(t *testing.T) {
	assert.Equal(t, DeliverableEmail, ParseDeliverableType("email"))
	assert.Equal(t, DeliverableDocument, ParseDeliverableType("spreadsheet"))
}

func TestMeanScore(t *testing.T) {
	assert.Zero(t, MeanScore(nil))
	assert.Zero(t, MeanScore(map[Dimension]float64{}))

	scores := map[Dimension]float64{
		DimRelevance:   80,
		DimClarity:     60,
		DimCorrectness: 70,
	}
	assert.InDelta(t, 70.0, MeanScore(scores), 0.001)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, GoalPlanning.Terminal())
	assert.False(t, GoalExecuting.Terminal())
	assert.True(t, GoalCompleted.Terminal())
	assert.True(t, GoalFailed.Terminal())

	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskRetrying.Terminal())
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
}

func TestNewGoalDefaults(t *testing.T) {
	g := NewGoal("tenant-1", "win back churned customers")
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, GoalPlanning, g.Status)
	assert.Equal(t, IntentMixed, g.Intent)
	assert.Equal(t, PriorityNormal, g.Priority)
	assert.False(t, g.CreatedAt.IsZero())
}

func TestNewTaskDefaults(t *testing.T) {
	task := NewTask("goal-1", "tenant-1", AgentCopywriter, "write a post")
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskPending, task.Status)
	assert.Equal(t, DefaultMaxRetries, task.MaxRetries)
	assert.Zero(t, task.RetryCount)
}

func TestPolicyDecisions(t *testing.T) {
	assert.True(t, Allow().Allowed)
	d := Deny("over budget")
	assert.False(t, d.Allowed)
	assert.Equal(t, "over budget", d.Reason)

	guard := AllowAllGuard{}
	assert.True(t, guard.CheckGoalAllowed(context.Background(), "t1").Allowed)
	assert.True(t, guard.CheckDispatchAllowed(context.Background(), "t1", "email", "a@b.c").Allowed)
}
