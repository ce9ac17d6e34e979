package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/goalmesh/goalmesh/core"
)

// InMemoryAuditLog is a volatile append-only core.AuditLog. Entries are
// stored in append order and never mutated; List returns clones.
type InMemoryAuditLog struct {
	mu      sync.RWMutex
	entries []core.AuditEntry
	seen    map[string]struct{}
}

// NewInMemoryAuditLog constructs an empty audit log.
func NewInMemoryAuditLog() *InMemoryAuditLog {
	return &InMemoryAuditLog{seen: make(map[string]struct{})}
}

// Append implements core.AuditLog. Re-appending an existing identifier is an
// error: the log is append-only by contract and silent replacement would
// disguise an update.
func (l *InMemoryAuditLog) Append(_ context.Context, entry core.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[entry.ID]; dup {
		return fmt.Errorf("audit entry %s already recorded", entry.ID)
	}
	l.seen[entry.ID] = struct{}{}
	l.entries = append(l.entries, cloneEntry(entry))
	return nil
}

// List implements core.AuditLog, filtering by tenant and (optionally)
// resource id.
func (l *InMemoryAuditLog) List(_ context.Context, tenantID, resourceID string) ([]core.AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.AuditEntry
	for _, e := range l.entries {
		if e.TenantID != tenantID {
			continue
		}
		if resourceID != "" && e.ResourceID != resourceID {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

// Len returns the total number of recorded entries.
func (l *InMemoryAuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func cloneEntry(e core.AuditEntry) core.AuditEntry {
	c := e
	if e.Detail != nil {
		c.Detail = make(map[string]any, len(e.Detail))
		for k, v := range e.Detail {
			c.Detail[k] = v
		}
	}
	return c
}
