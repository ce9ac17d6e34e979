// Package policy provides an in-process PolicyGuard implementation enforcing
// per-tenant rate and volume limits. The guard is explicitly constructed and
// passed in wherever it is needed; there is no process-wide singleton.
package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goalmesh/goalmesh/core"
)

// Limits configures the guard's per-tenant ceilings. Zero values mean
// unlimited for that dimension.
type Limits struct {
	// GoalsPerHour caps goal creations per tenant in a sliding hour.
	GoalsPerHour int
	// DispatchesPerHour caps outbound sends per tenant in a sliding hour.
	DispatchesPerHour int
	// MaxSpendPerHour caps estimated model spend per tenant in a sliding
	// hour. New goals are denied once the cap is reached.
	MaxSpendPerHour float64
	// BlockedChannels lists channels no tenant may dispatch through.
	BlockedChannels []string
}

// DefaultLimits are conservative ceilings suitable for a single-tenant
// deployment.
var DefaultLimits = Limits{
	GoalsPerHour:      20,
	DispatchesPerHour: 100,
}

// Guard is a sliding-window rate limiter implementing core.PolicyGuard.
// Safe for concurrent use.
type Guard struct {
	limits  Limits
	blocked map[string]struct{}
	now     func() time.Time

	mu         sync.Mutex
	goals      map[string][]time.Time // tenant -> goal creation instants
	dispatches map[string][]time.Time // tenant -> dispatch instants
	spend      map[string][]spend     // tenant -> recorded spend entries
}

type spend struct {
	at     time.Time
	amount float64
}

// Option customizes a Guard.
type Option func(*Guard)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// NewGuard constructs a Guard with the given limits.
func NewGuard(limits Limits, opts ...Option) *Guard {
	g := &Guard{
		limits:     limits,
		blocked:    make(map[string]struct{}, len(limits.BlockedChannels)),
		now:        time.Now,
		goals:      make(map[string][]time.Time),
		dispatches: make(map[string][]time.Time),
		spend:      make(map[string][]spend),
	}
	for _, ch := range limits.BlockedChannels {
		g.blocked[ch] = struct{}{}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckGoalAllowed implements core.PolicyGuard. An allowed check counts
// against the tenant's window immediately, so concurrent callers cannot
// both squeeze through the last slot.
func (g *Guard) CheckGoalAllowed(_ context.Context, tenantID string) core.Decision {
	if g.limits.GoalsPerHour <= 0 && g.limits.MaxSpendPerHour <= 0 {
		return core.Allow()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limits.MaxSpendPerHour > 0 && g.hourlySpend(tenantID) >= g.limits.MaxSpendPerHour {
		return core.Deny(fmt.Sprintf("spend limit reached: %.2f per hour", g.limits.MaxSpendPerHour))
	}
	if g.limits.GoalsPerHour > 0 {
		window := g.prune(g.goals, tenantID)
		if len(window) >= g.limits.GoalsPerHour {
			return core.Deny(fmt.Sprintf("goal rate limit reached: %d per hour", g.limits.GoalsPerHour))
		}
		g.goals[tenantID] = append(window, g.now())
	}
	return core.Allow()
}

// RecordSpend charges estimated model spend against the tenant's hourly
// window. The engine reports each goal's cost here when the guard supports it.
func (g *Guard) RecordSpend(tenantID string, amount float64) {
	if amount <= 0 || g.limits.MaxSpendPerHour <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spend[tenantID] = append(g.spend[tenantID], spend{at: g.now(), amount: amount})
}

// CheckDispatchAllowed implements core.PolicyGuard.
func (g *Guard) CheckDispatchAllowed(_ context.Context, tenantID, channel, _ string) core.Decision {
	if _, ok := g.blocked[channel]; ok {
		return core.Deny(fmt.Sprintf("channel %q is blocked by policy", channel))
	}
	if g.limits.DispatchesPerHour <= 0 {
		return core.Allow()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	window := g.prune(g.dispatches, tenantID)
	if len(window) >= g.limits.DispatchesPerHour {
		return core.Deny(fmt.Sprintf("dispatch rate limit reached: %d per hour", g.limits.DispatchesPerHour))
	}
	g.dispatches[tenantID] = append(window, g.now())
	return core.Allow()
}

// hourlySpend sums spend recorded within the last hour, pruning expired
// entries as a side effect. Caller must hold the mutex.
func (g *Guard) hourlySpend(tenantID string) float64 {
	cutoff := g.now().Add(-time.Hour)
	window := g.spend[tenantID][:0]
	var total float64
	for _, s := range g.spend[tenantID] {
		if s.at.After(cutoff) {
			window = append(window, s)
			total += s.amount
		}
	}
	g.spend[tenantID] = window
	return total
}

// prune drops entries older than an hour and returns the surviving window.
// Caller must hold the mutex.
func (g *Guard) prune(m map[string][]time.Time, tenantID string) []time.Time {
	cutoff := g.now().Add(-time.Hour)
	window := m[tenantID][:0]
	for _, t := range m[tenantID] {
		if t.After(cutoff) {
			window = append(window, t)
		}
	}
	m[tenantID] = window
	return window
}
