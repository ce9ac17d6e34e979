package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/goalmesh/goalmesh/core"
)

// InMemoryStore is a volatile core.Store implementation backed by process
// local maps. Each returned record is a clone so callers can mutate freely
// and persist via the Update methods, mirroring how a database-backed store
// behaves.
type InMemoryStore struct {
	mu           sync.RWMutex
	goals        map[string]*core.Goal
	tasks        map[string]*core.Task
	deliverables map[string]*core.Deliverable
	taskOrder    []string
	delivOrder   []string
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		goals:        make(map[string]*core.Goal),
		tasks:        make(map[string]*core.Task),
		deliverables: make(map[string]*core.Deliverable),
	}
}

// CreateGoal implements core.Store.
func (s *InMemoryStore) CreateGoal(_ context.Context, g *core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.goals[g.ID]; exists {
		return fmt.Errorf("goal %s already exists", g.ID)
	}
	s.goals[g.ID] = cloneGoal(g)
	return nil
}

// UpdateGoal implements core.Store. Usage counters are preserved from the
// stored record so concurrent AddGoalUsage increments are never clobbered
// by a stale in-flight snapshot.
func (s *InMemoryStore) UpdateGoal(_ context.Context, g *core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.goals[g.ID]
	if !ok {
		return core.ErrNotFound
	}
	updated := cloneGoal(g)
	updated.TokensUsed = current.TokensUsed
	updated.EstimatedCost = current.EstimatedCost
	s.goals[g.ID] = updated
	return nil
}

// GetGoal implements core.Store.
func (s *InMemoryStore) GetGoal(_ context.Context, id string) (*core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneGoal(g), nil
}

// CreateTask implements core.Store.
func (s *InMemoryStore) CreateTask(_ context.Context, t *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("task %s already exists", t.ID)
	}
	s.tasks[t.ID] = cloneTask(t)
	s.taskOrder = append(s.taskOrder, t.ID)
	return nil
}

// UpdateTask implements core.Store.
func (s *InMemoryStore) UpdateTask(_ context.Context, t *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return core.ErrNotFound
	}
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

// GetTask implements core.Store.
func (s *InMemoryStore) GetTask(_ context.Context, id string) (*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneTask(t), nil
}

// ListTasksByGoal implements core.Store, returning tasks in creation order.
func (s *InMemoryStore) ListTasksByGoal(_ context.Context, goalID string) ([]*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Task
	for _, id := range s.taskOrder {
		if t := s.tasks[id]; t != nil && t.GoalID == goalID {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

// CreateDeliverable implements core.Store.
func (s *InMemoryStore) CreateDeliverable(_ context.Context, d *core.Deliverable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deliverables[d.ID]; exists {
		return fmt.Errorf("deliverable %s already exists", d.ID)
	}
	s.deliverables[d.ID] = cloneDeliverable(d)
	s.delivOrder = append(s.delivOrder, d.ID)
	return nil
}

// UpdateDeliverable implements core.Store.
func (s *InMemoryStore) UpdateDeliverable(_ context.Context, d *core.Deliverable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliverables[d.ID]; !ok {
		return core.ErrNotFound
	}
	s.deliverables[d.ID] = cloneDeliverable(d)
	return nil
}

// GetDeliverable implements core.Store.
func (s *InMemoryStore) GetDeliverable(_ context.Context, id string) (*core.Deliverable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliverables[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneDeliverable(d), nil
}

// ListDeliverablesByTask implements core.Store, in creation order.
func (s *InMemoryStore) ListDeliverablesByTask(_ context.Context, taskID string) ([]*core.Deliverable, error) {
	return s.listDeliverables(func(d *core.Deliverable) bool { return d.TaskID == taskID })
}

// ListDeliverablesByGoal implements core.Store, in creation order.
func (s *InMemoryStore) ListDeliverablesByGoal(_ context.Context, goalID string) ([]*core.Deliverable, error) {
	return s.listDeliverables(func(d *core.Deliverable) bool { return d.GoalID == goalID })
}

func (s *InMemoryStore) listDeliverables(match func(*core.Deliverable) bool) ([]*core.Deliverable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Deliverable
	for _, id := range s.delivOrder {
		if d := s.deliverables[id]; d != nil && match(d) {
			out = append(out, cloneDeliverable(d))
		}
	}
	return out, nil
}

// AddGoalUsage implements core.Store with an atomic increment under the
// store lock.
func (s *InMemoryStore) AddGoalUsage(_ context.Context, goalID string, tokens int, cost float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok {
		return core.ErrNotFound
	}
	g.TokensUsed += tokens
	g.EstimatedCost += cost
	return nil
}

func cloneGoal(g *core.Goal) *core.Goal {
	c := *g
	c.Plan = append([]core.TaskSpec(nil), g.Plan...)
	if g.QualityScore != nil {
		v := *g.QualityScore
		c.QualityScore = &v
	}
	return &c
}

func cloneTask(t *core.Task) *core.Task {
	c := *t
	c.DependsOn = append([]string(nil), t.DependsOn...)
	if t.QualityScore != nil {
		v := *t.QualityScore
		c.QualityScore = &v
	}
	return &c
}

func cloneDeliverable(d *core.Deliverable) *core.Deliverable {
	c := *d
	if d.Scores != nil {
		c.Scores = make(map[core.Dimension]float64, len(d.Scores))
		for k, v := range d.Scores {
			c.Scores[k] = v
		}
	}
	if d.Metadata != nil {
		c.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
