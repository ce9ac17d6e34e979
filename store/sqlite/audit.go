package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goalmesh/goalmesh/core"
)

// AuditLog is a durable append-only core.AuditLog. The implementation only
// ever issues INSERT and SELECT statements against the audit table; there is
// no code path that updates or deletes an entry.
type AuditLog struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewAuditLog wraps an opened database.
func NewAuditLog(db *sql.DB) *AuditLog { return &AuditLog{DB: db} }

// Append implements core.AuditLog.
func (l *AuditLog) Append(ctx context.Context, entry core.AuditEntry) error {
	detail, err := marshalJSON(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		now := l.Now
		if now == nil {
			now = time.Now
		}
		ts = now().UTC()
	}
	_, err = l.DB.ExecContext(ctx, `INSERT INTO audit_entries(id,tenant_id,actor,action,resource,resource_id,detail_json,ts) VALUES (?,?,?,?,?,?,?,?)`,
		entry.ID, entry.TenantID, entry.Actor, string(entry.Action),
		nullable(entry.Resource), nullable(entry.ResourceID), detail, formatTime(ts))
	return err
}

// List implements core.AuditLog in append (timestamp, id) order.
func (l *AuditLog) List(ctx context.Context, tenantID, resourceID string) ([]core.AuditEntry, error) {
	query := `SELECT id,tenant_id,actor,action,COALESCE(resource,''),COALESCE(resource_id,''),COALESCE(detail_json,''),ts FROM audit_entries WHERE tenant_id=?`
	args := []any{tenantID}
	if resourceID != "" {
		query += ` AND resource_id=?`
		args = append(args, resourceID)
	}
	query += ` ORDER BY ts, id`

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		var (
			e      core.AuditEntry
			action string
			detail string
			ts     string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Actor, &action, &e.Resource, &e.ResourceID, &detail, &ts); err != nil {
			return nil, err
		}
		e.Action = core.AuditAction(action)
		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
