package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/goalmesh/goalmesh/core"
)

// ShipDeliverable dispatches a stored deliverable via an outbound channel,
// subject to the policy guard. On success the deliverable transitions to
// shipped with the channel recorded; a policy denial writes a
// dispatch.blocked audit entry and returns an error. Already-shipped
// deliverables are rejected rather than re-sent.
func (e *Engine) ShipDeliverable(ctx context.Context, deliverableID, channel, target string) (*core.Deliverable, error) {
	if deliverableID == "" {
		return nil, fmt.Errorf("engine: deliverable id is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("engine: dispatch channel is required")
	}

	d, err := e.store.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return nil, fmt.Errorf("load deliverable: %w", err)
	}
	if d.Status == core.DeliverableShipped {
		return nil, fmt.Errorf("engine: deliverable %s already shipped via %s", d.ID, d.ShippedVia)
	}
	if d.Status == core.DeliverableRejected {
		return nil, fmt.Errorf("engine: deliverable %s was rejected", d.ID)
	}

	if decision := e.guard.CheckDispatchAllowed(ctx, d.TenantID, channel, target); !decision.Allowed {
		e.appendAudit(ctx, core.NewAuditEntry(d.TenantID, "engine", core.AuditDispatchBlocked, "deliverable", d.ID,
			map[string]any{"channel": channel, "target": target, "reason": decision.Reason}))
		e.logger.Warn("dispatch blocked by policy",
			"deliverable_id", d.ID, "channel", channel, "reason", decision.Reason)
		return nil, fmt.Errorf("engine: dispatch blocked: %s", decision.Reason)
	}

	now := time.Now().UTC()
	d.Status = core.DeliverableShipped
	d.ShippedVia = channel
	d.ShippedAt = &now
	if err := e.store.UpdateDeliverable(ctx, d); err != nil {
		return nil, fmt.Errorf("record shipment: %w", err)
	}
	e.appendAudit(ctx, core.NewAuditEntry(d.TenantID, "engine", core.AuditDeliverableShipped, "deliverable", d.ID,
		map[string]any{"channel": channel, "target": target}))
	e.logger.Info("deliverable shipped", "deliverable_id", d.ID, "channel", channel)
	return d, nil
}
