package core

import (
	"context"
	"time"
)

// AuditAction tags what happened in an audit entry.
type AuditAction string

// Every goal/task state transition writes exactly one entry with one of
// these actions.
const (
	AuditGoalCreated        AuditAction = "goal.created"
	AuditGoalPlanned        AuditAction = "goal.planned"
	AuditGoalCompleted      AuditAction = "goal.completed"
	AuditGoalFailed         AuditAction = "goal.failed"
	AuditTaskStarted        AuditAction = "task.started"
	AuditTaskRetrying       AuditAction = "task.retrying"
	AuditTaskCompleted      AuditAction = "task.completed"
	AuditTaskFailed         AuditAction = "task.failed"
	AuditDeliverableCreated AuditAction = "deliverable.created"
	AuditDeliverableShipped AuditAction = "deliverable.shipped"
	AuditDispatchBlocked    AuditAction = "dispatch.blocked"
)

// AuditEntry is an immutable event record. After emission it must be treated
// as append-only: implementations of AuditLog never update or delete entries.
type AuditEntry struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Actor      string         `json:"actor"`
	Action     AuditAction    `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewAuditEntry creates an entry authored by actor for the given action and
// resource. Detail may be nil.
func NewAuditEntry(tenantID, actor string, action AuditAction, resource, resourceID string, detail map[string]any) AuditEntry {
	return AuditEntry{
		ID:         NewID(),
		TenantID:   tenantID,
		Actor:      actor,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     detail,
		Timestamp:  time.Now().UTC(),
	}
}

// AuditLog is the append-only event stream written by every state transition.
//
// Contract:
//   - Append never mutates existing entries; an entry, once accepted, is
//     observable forever with the same identifier and payload
//   - entries for a single task appear in state-machine order; across tasks
//     there is no ordering guarantee
//   - implementations must be safe for concurrent appenders
type AuditLog interface {
	// Append records one entry. The entry's ID must be set by the caller
	// (NewAuditEntry does this).
	Append(ctx context.Context, entry AuditEntry) error

	// List returns entries for a tenant in append order. resourceID filters
	// to a single resource when non-empty.
	List(ctx context.Context, tenantID, resourceID string) ([]AuditEntry, error)
}
