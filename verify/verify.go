// Package verify scores candidate output items against the original task
// instructions using the completion service as a judge. Scoring is
// best-effort: when the judge call itself fails the caller receives an error
// and is expected to degrade to an optimistic pass rather than blocking the
// task (see NeutralVerdict).
package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/goalmesh/goalmesh/core"
	"github.com/goalmesh/goalmesh/extract"
	"github.com/goalmesh/goalmesh/logging"
	"github.com/goalmesh/goalmesh/model"
)

const (
	// PassThreshold is the overall score at or above which an attempt passes.
	PassThreshold = 70.0

	// NeutralScore is the documented default applied when the verifier
	// itself fails; availability of the verifier is best-effort, not a hard
	// gate on forward progress.
	NeutralScore = 75.0

	// bodyPreview caps how much of each item body is shown to the judge.
	bodyPreview = 600
)

// scoringPrompt is the fixed system prompt for the judging call.
const scoringPrompt = `You are a strict quality reviewer for business content produced by autonomous agents.

Score the submitted outputs against the task instructions on each dimension from 0 to 100:
relevance, specificity, correctness, clarity, persuasion, brand_voice, personalization, compliance.

Respond with a single JSON object:
{"scores": {"relevance": 0, "specificity": 0, "correctness": 0, "clarity": 0, "persuasion": 0, "brand_voice": 0, "personalization": 0, "compliance": 0}, "overall": 0, "feedback": "<one short paragraph of concrete improvement feedback>"}
Return only the JSON object.`

// Verdict is the structured result of one verification call.
type Verdict struct {
	Scores   map[core.Dimension]float64 `json:"scores"`
	Overall  float64                    `json:"overall"`
	Pass     bool                       `json:"pass"`
	Feedback string                     `json:"feedback,omitempty"`
}

// NeutralVerdict is the degraded pass applied when the verifier call fails.
// Every dimension carries the neutral score so downstream aggregates stay
// well defined.
func NeutralVerdict() *Verdict {
	scores := make(map[core.Dimension]float64, len(core.Dimensions()))
	for _, d := range core.Dimensions() {
		scores[d] = NeutralScore
	}
	return &Verdict{Scores: scores, Overall: NeutralScore, Pass: true}
}

// Options configures a Verifier.
type Options struct {
	// Threshold overrides PassThreshold when > 0.
	Threshold float64

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Verifier judges output quality via the completion client.
type Verifier struct {
	client    model.CompletionClient
	threshold float64
	logger    logging.Logger
}

// New constructs a Verifier.
func New(client model.CompletionClient, optFns ...func(o *Options)) *Verifier {
	opts := Options{Threshold: PassThreshold, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Threshold <= 0 {
		opts.Threshold = PassThreshold
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Verifier{client: client, threshold: opts.Threshold, logger: opts.Logger}
}

// Verify scores the items against the instructions. The returned error is
// non-nil only when the judging call or its extraction failed; callers are
// expected to substitute NeutralVerdict in that case.
func (v *Verifier) Verify(ctx context.Context, instructions string, items []core.OutputItem) (*Verdict, error) {
	completion, err := v.client.Complete(ctx, model.Request{
		System:       scoringPrompt,
		Instructions: condense(instructions, items),
	})
	if err != nil {
		return nil, fmt.Errorf("verify: judge call: %w", err)
	}

	obj, ok := extract.Object(completion.Text)
	if !ok {
		return nil, fmt.Errorf("verify: no score object in judge response")
	}

	verdict := v.parseVerdict(obj)
	v.logger.Debug("verification scored", "overall", verdict.Overall, "pass", verdict.Pass)
	return verdict, nil
}

// Threshold returns the configured pass threshold.
func (v *Verifier) Threshold() float64 { return v.threshold }

// condense builds the judge's user message: the instructions plus each
// item's type, title and truncated body.
func condense(instructions string, items []core.OutputItem) string {
	var sb strings.Builder
	sb.WriteString("TASK INSTRUCTIONS:\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\nSUBMITTED OUTPUTS:\n")
	for i, item := range items {
		body := item.Content
		if len(body) > bodyPreview {
			body = body[:bodyPreview] + "..."
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n%s\n\n", i+1, item.Type, item.Title, body)
	}
	return sb.String()
}

// parseVerdict maps the extracted score object onto a Verdict. Unknown
// dimensions are dropped; a missing overall falls back to the mean of the
// per-dimension scores.
func (v *Verifier) parseVerdict(obj map[string]any) *Verdict {
	verdict := &Verdict{Scores: make(map[core.Dimension]float64)}

	if raw, ok := obj["scores"].(map[string]any); ok {
		for _, d := range core.Dimensions() {
			if f, ok := raw[string(d)].(float64); ok {
				verdict.Scores[d] = clamp(f)
			}
		}
	}

	if overall, ok := extract.Number(obj, "overall"); ok {
		verdict.Overall = clamp(overall)
	} else {
		verdict.Overall = core.MeanScore(verdict.Scores)
	}

	verdict.Feedback = extract.String(obj, "feedback")
	verdict.Pass = verdict.Overall >= v.threshold
	return verdict
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	default:
		return f
	}
}
