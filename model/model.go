package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a completion call failure. The engine treats every
// kind identically ("no usable text"); the taxonomy exists for logging and
// for callers that want to stop retrying on non-transient failures.
type ErrorKind string

const (
	// ErrTimeout means the per-call ceiling elapsed before a response arrived.
	ErrTimeout ErrorKind = "timeout"
	// ErrAuth means the provider rejected the credentials.
	ErrAuth ErrorKind = "auth"
	// ErrMalformedRequest means the provider rejected the request shape.
	ErrMalformedRequest ErrorKind = "malformed_request"
	// ErrTransport covers connection resets, 5xx responses and other
	// transient provider failures.
	ErrTransport ErrorKind = "transport"
)

// Error is the typed failure returned by completion clients.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("completion %s", e.Kind)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// NewError wraps a cause with a failure kind.
func NewError(kind ErrorKind, err error) *Error { return &Error{Kind: kind, Err: err} }

// KindOf extracts the ErrorKind from an error chain, mapping context
// cancellation/deadline errors to ErrTimeout and everything untyped to
// ErrTransport.
func KindOf(err error) ErrorKind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	return ErrTransport
}

// DefaultCallTimeout is the per-call ceiling applied when a request does not
// specify one. A hung provider call must never block a whole goal.
const DefaultCallTimeout = 90 * time.Second

// Request captures one completion call: a system prompt, the user
// instruction text and an output size cap.
type Request struct {
	System       string        `json:"system"`
	Instructions string        `json:"instructions"`
	MaxTokens    int64         `json:"max_tokens,omitempty"`
	Timeout      time.Duration `json:"-"`
}

// Completion is the successful result of a completion call.
type Completion struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns input plus output token counts.
func (c Completion) TotalTokens() int { return c.InputTokens + c.OutputTokens }

// Info contains metadata about a completion client implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// CompletionClient is the minimal interface the engine needs from a
// text-completion service. Implementations must honor ctx cancellation and
// apply Request.Timeout (or DefaultCallTimeout when zero) to the underlying
// call.
type CompletionClient interface {
	Complete(ctx context.Context, req Request) (*Completion, error)

	// Info returns information about the client implementation.
	Info() Info
}

// WithTimeout derives the per-call context for a request, falling back to
// DefaultCallTimeout. Shared by provider adapters.
func WithTimeout(ctx context.Context, req Request) (context.Context, context.CancelFunc) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// MockClient is a lightweight in-memory CompletionClient useful for tests &
// examples. Responses are matched on instruction text; unmatched requests
// get a generic echo response.
type MockClient struct {
	info      Info
	responses map[string]string
}

// NewMockClient constructs a MockClient.
func NewMockClient(name string) *MockClient {
	return &MockClient{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an instruction.
func (m *MockClient) AddResponse(instructions, response string) {
	m.responses[instructions] = response
}

// Complete implements CompletionClient.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(ErrTimeout, err)
	}
	text, ok := m.responses[req.Instructions]
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", req.Instructions)
	}
	return &Completion{
		Text:         text,
		InputTokens:  (len(req.System) + len(req.Instructions)) / 4,
		OutputTokens: len(text) / 4,
	}, nil
}

// Info implements CompletionClient.
func (m *MockClient) Info() Info { return m.info }
