package core

import "context"

// Decision is a policy guard verdict. Reason is only meaningful when the
// operation was denied.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow is the unconditional positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny creates a negative decision with the given reason.
func Deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// PolicyGuard answers "is this operation currently allowed" based on rate,
// cost and volume limits. Both checks are advisory gates the engine honors
// before goal creation and before any outbound dispatch; the guard is
// constructed explicitly and passed in, never a process-wide singleton.
type PolicyGuard interface {
	// CheckGoalAllowed is consulted before a goal record is created.
	CheckGoalAllowed(ctx context.Context, tenantID string) Decision

	// CheckDispatchAllowed is consulted before a deliverable is shipped via
	// an outbound channel.
	CheckDispatchAllowed(ctx context.Context, tenantID, channel, target string) Decision
}

// AllowAllGuard is a PolicyGuard that permits everything. Useful for tests
// and for deployments that enforce limits elsewhere.
type AllowAllGuard struct{}

// CheckGoalAllowed implements PolicyGuard.
func (AllowAllGuard) CheckGoalAllowed(context.Context, string) Decision { return Allow() }

// CheckDispatchAllowed implements PolicyGuard.
func (AllowAllGuard) CheckDispatchAllowed(context.Context, string, string, string) Decision {
	return Allow()
}
