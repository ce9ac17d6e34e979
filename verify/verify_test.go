package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/internal/testutil"
)

func items() []core.OutputItem {
	return []core.OutputItem{
		{Type: core.DeliverablePost, Title: "Launch post", Content: "We are live."},
	}
}

func TestVerifyPassingScore(t *testing.T) {
	client := testutil.NewScriptedClient().Respond(testutil.VerdictJSON(85, "solid work"))
	v := New(client)

	verdict, err := v.Verify(context.Background(), "write a launch post", items())
	require.NoError(t, err)
	assert.True(t, verdict.Pass)
	assert.InDelta(t, 85.0, verdict.Overall, 0.001)
	assert.Equal(t, "solid work", verdict.Feedback)
	assert.Len(t, verdict.Scores, len(core.Dimensions()))
}

func TestVerifyFailingScore(t *testing.T) {
	client := testutil.NewScriptedClient().Respond(testutil.VerdictJSON(40, "too vague"))
	v := New(client)

	verdict, err := v.Verify(context.Background(), "write a launch post", items())
	require.NoError(t, err)
	assert.False(t, verdict.Pass)
	assert.Equal(t, "too vague", verdict.Feedback)
}

func TestVerifyCustomThreshold(t *testing.T) {
	client := testutil.NewScriptedClient().
		Respond(testutil.VerdictJSON(75, "")).
		Respond(testutil.VerdictJSON(75, ""))
	v := New(client, func(o *Options) { o.Threshold = 80 })
	assert.InDelta(t, 80.0, v.Threshold(), 0.001)

	verdict, err := v.Verify(context.Background(), "x", items())
	require.NoError(t, err)
	assert.False(t, verdict.Pass)

	v2 := New(client, func(o *Options) { o.Threshold = 60 })
	verdict, err = v2.Verify(context.Background(), "x", items())
	require.NoError(t, err)
	assert.True(t, verdict.Pass)
}

func TestVerifyJudgeCallFails(t *testing.T) {
	client := testutil.NewScriptedClient().Fail(errors.New("boom"))
	v := New(client)

	_, err := v.Verify(context.Background(), "x", items())
	assert.Error(t, err)
}

func TestVerifyNoScoreObject(t *testing.T) {
	client := testutil.NewScriptedClient().Respond("I refuse to score this.")
	v := New(client)

	_, err := v.Verify(context.Background(), "x", items())
	assert.Error(t, err)
}

func TestVerifyOverallFallsBackToMean(t *testing.T) {
	client := testutil.NewScriptedClient().Respond(
		`{"scores": {"relevance": 90, "clarity": 70}, "feedback": "fine"}`)
	v := New(client)

	verdict, err := v.Verify(context.Background(), "x", items())
	require.NoError(t, err)
	assert.InDelta(t, 80.0, verdict.Overall, 0.001)
	assert.True(t, verdict.Pass)
}

func TestVerifyClampsScores(t *testing.T) {
	client := testutil.NewScriptedClient().Respond(
		`{"scores": {"relevance": 150, "clarity": -20}, "overall": 120, "feedback": ""}`)
	v := New(client)

	verdict, err := v.Verify(context.Background(), "x", items())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, verdict.Overall, 0.001)
	assert.InDelta(t, 100.0, verdict.Scores[core.DimRelevance], 0.001)
	assert.InDelta(t, 0.0, verdict.Scores[core.DimClarity], 0.001)
}

func TestNeutralVerdict(t *testing.T) {
	verdict := NeutralVerdict()
	assert.True(t, verdict.Pass)
	assert.InDelta(t, NeutralScore, verdict.Overall, 0.001)
	for _, d := range core.Dimensions() {
		assert.InDelta(t, NeutralScore, verdict.Scores[d], 0.001)
	}
}

func TestCondenseTruncatesLongBodies(t *testing.T) {
	long := strings.Repeat("a", bodyPreview+50)
	msg := condense("instructions", []core.OutputItem{{Type: core.DeliverablePost, Title: "t", Content: long}})
	assert.Contains(t, msg, "TASK INSTRUCTIONS:")
	assert.Contains(t, msg, "...")
	assert.NotContains(t, msg, long)
}
