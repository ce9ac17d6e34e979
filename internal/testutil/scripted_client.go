package testutil

import (
	"context"
	"sync"

	"github.com/goalmesh/goalmesh/model"
)

// Step is one scripted completion outcome: either a response text or an
// error. Tokens default to 10/20 when unset so usage rollups have something
// to add up.
type Step struct {
	Text         string
	Err          error
	InputTokens  int
	OutputTokens int
}

// ScriptedClient replays a fixed sequence of completion outcomes in call
// order, regardless of the prompt. Useful for driving the
// plan -> generate -> verify call sequence deterministically. Once the
// script is exhausted every further call returns the last step. Safe for
// concurrent use; calls consume steps in arrival order.
type ScriptedClient struct {
	mu       sync.Mutex
	steps    []Step
	calls    []model.Request
	position int
}

// NewScriptedClient builds a client replaying the given steps.
func NewScriptedClient(steps ...Step) *ScriptedClient {
	return &ScriptedClient{steps: steps}
}

// Respond appends a successful step.
func (c *ScriptedClient) Respond(text string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, Step{Text: text})
	return c
}

// Fail appends an error step.
func (c *ScriptedClient) Fail(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, Step{Err: err})
	return c
}

// Calls returns a copy of every request received so far.
func (c *ScriptedClient) Calls() []model.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Request, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns how many Complete calls were made.
func (c *ScriptedClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Complete implements model.CompletionClient.
func (c *ScriptedClient) Complete(ctx context.Context, req model.Request) (*model.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewError(model.ErrTimeout, err)
	}

	c.mu.Lock()
	c.calls = append(c.calls, req)
	if len(c.steps) == 0 {
		c.mu.Unlock()
		return &model.Completion{Text: "", InputTokens: 10, OutputTokens: 20}, nil
	}
	step := c.steps[min(c.position, len(c.steps)-1)]
	c.position++
	c.mu.Unlock()

	if step.Err != nil {
		return nil, step.Err
	}
	in, out := step.InputTokens, step.OutputTokens
	if in == 0 {
		in = 10
	}
	if out == 0 {
		out = 20
	}
	return &model.Completion{Text: step.Text, InputTokens: in, OutputTokens: out}, nil
}

// Info implements model.CompletionClient.
func (c *ScriptedClient) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "mock"}
}
