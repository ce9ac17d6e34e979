package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store implementations when a requested record
// does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistent entity store for Goal/Task/Deliverable records.
// The engine does not own transaction semantics beyond create, update and
// the atomic usage increment; implementations should be safe for concurrent
// writers since tasks may execute in parallel.
//
// Each task owns writes to its own Task/Deliverable rows; the goal's rollup
// counters are only ever touched through AddGoalUsage, which must be an
// atomic increment rather than a read-modify-write.
type Store interface {
	CreateGoal(ctx context.Context, g *Goal) error
	UpdateGoal(ctx context.Context, g *Goal) error
	GetGoal(ctx context.Context, id string) (*Goal, error)

	CreateTask(ctx context.Context, t *Task) error
	UpdateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasksByGoal(ctx context.Context, goalID string) ([]*Task, error)

	CreateDeliverable(ctx context.Context, d *Deliverable) error
	UpdateDeliverable(ctx context.Context, d *Deliverable) error
	GetDeliverable(ctx context.Context, id string) (*Deliverable, error)
	ListDeliverablesByTask(ctx context.Context, taskID string) ([]*Deliverable, error)
	ListDeliverablesByGoal(ctx context.Context, goalID string) ([]*Deliverable, error)

	// AddGoalUsage atomically increments the goal's token and cost rollups.
	AddGoalUsage(ctx context.Context, goalID string, tokens int, cost float64) error
}
