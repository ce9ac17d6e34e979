package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goalmesh/goalmesh/core"
)

// Store is a durable core.Store backed by SQLite. All mutations are single
// statements; the usage rollup is an in-database increment so concurrent
// task completions never lose updates.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an opened database.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// CreateGoal implements core.Store.
func (s *Store) CreateGoal(ctx context.Context, g *core.Goal) error {
	plan, err := marshalJSON(g.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO goals(id,tenant_id,command,intent,priority,status,plan_json,total_tasks,completed_tasks,tokens_used,estimated_cost,quality_score,summary,created_at,started_at,completed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.TenantID, g.Command, string(g.Intent), string(g.Priority), string(g.Status), plan,
		g.TotalTasks, g.CompletedTasks, g.TokensUsed, g.EstimatedCost,
		nullFloat(g.QualityScore), nullable(g.Summary), formatTime(g.CreatedAt), nullTime(g.StartedAt), nullTime(g.CompletedAt))
	return err
}

// UpdateGoal implements core.Store. Usage counters are deliberately not
// written here; AddGoalUsage owns them.
func (s *Store) UpdateGoal(ctx context.Context, g *core.Goal) error {
	plan, err := marshalJSON(g.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE goals SET intent=?,priority=?,status=?,plan_json=?,total_tasks=?,completed_tasks=?,quality_score=?,summary=?,started_at=?,completed_at=? WHERE id=?`,
		string(g.Intent), string(g.Priority), string(g.Status), plan, g.TotalTasks, g.CompletedTasks,
		nullFloat(g.QualityScore), nullable(g.Summary), nullTime(g.StartedAt), nullTime(g.CompletedAt), g.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GetGoal implements core.Store.
func (s *Store) GetGoal(ctx context.Context, id string) (*core.Goal, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id,tenant_id,command,intent,priority,status,COALESCE(plan_json,''),total_tasks,completed_tasks,tokens_used,estimated_cost,quality_score,COALESCE(summary,''),created_at,started_at,completed_at FROM goals WHERE id=?`, id)

	var (
		g                    core.Goal
		intent, priority     string
		status, plan         string
		quality              sql.NullFloat64
		created              string
		started, completed   sql.NullString
	)
	err := row.Scan(&g.ID, &g.TenantID, &g.Command, &intent, &priority, &status, &plan,
		&g.TotalTasks, &g.CompletedTasks, &g.TokensUsed, &g.EstimatedCost, &quality, &g.Summary,
		&created, &started, &completed)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	g.Intent = core.IntentTag(intent)
	g.Priority = core.Priority(priority)
	g.Status = core.GoalStatus(status)
	if plan != "" {
		if err := json.Unmarshal([]byte(plan), &g.Plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan: %w", err)
		}
	}
	if quality.Valid {
		g.QualityScore = &quality.Float64
	}
	if g.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if g.StartedAt, err = parseNullTime(started); err != nil {
		return nil, err
	}
	if g.CompletedAt, err = parseNullTime(completed); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateTask implements core.Store.
func (s *Store) CreateTask(ctx context.Context, t *core.Task) error {
	deps, err := marshalJSON(t.DependsOn)
	if err != nil {
		return fmt.Errorf("marshal depends_on: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO tasks(id,goal_id,tenant_id,agent,instructions,depends_json,status,retry_count,max_retries,summary,quality_score,tokens_used,duration_ns,error,created_at,started_at,completed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.GoalID, t.TenantID, string(t.Agent), t.Instructions, deps, string(t.Status),
		t.RetryCount, t.MaxRetries, nullable(t.Summary), nullFloat(t.QualityScore),
		t.TokensUsed, int64(t.Duration), nullable(t.Error), formatTime(t.CreatedAt), nullTime(t.StartedAt), nullTime(t.CompletedAt))
	return err
}

// UpdateTask implements core.Store.
func (s *Store) UpdateTask(ctx context.Context, t *core.Task) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE tasks SET status=?,retry_count=?,summary=?,quality_score=?,tokens_used=?,duration_ns=?,error=?,started_at=?,completed_at=? WHERE id=?`,
		string(t.Status), t.RetryCount, nullable(t.Summary), nullFloat(t.QualityScore),
		t.TokensUsed, int64(t.Duration), nullable(t.Error), nullTime(t.StartedAt), nullTime(t.CompletedAt), t.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GetTask implements core.Store.
func (s *Store) GetTask(ctx context.Context, id string) (*core.Task, error) {
	row := s.DB.QueryRowContext(ctx, taskSelect+` WHERE id=?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return t, err
}

// ListTasksByGoal implements core.Store in creation order.
func (s *Store) ListTasksByGoal(ctx context.Context, goalID string) ([]*core.Task, error) {
	rows, err := s.DB.QueryContext(ctx, taskSelect+` WHERE goal_id=? ORDER BY created_at, id`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const taskSelect = `SELECT id,goal_id,tenant_id,agent,instructions,COALESCE(depends_json,''),status,retry_count,max_retries,COALESCE(summary,''),quality_score,tokens_used,duration_ns,COALESCE(error,''),created_at,started_at,completed_at FROM tasks`

type rowScanner interface{ Scan(dest ...any) error }

func scanTask(row rowScanner) (*core.Task, error) {
	var (
		t                  core.Task
		agent, deps        string
		status             string
		quality            sql.NullFloat64
		durationNS         int64
		created            string
		started, completed sql.NullString
	)
	err := row.Scan(&t.ID, &t.GoalID, &t.TenantID, &agent, &t.Instructions, &deps, &status,
		&t.RetryCount, &t.MaxRetries, &t.Summary, &quality, &t.TokensUsed, &durationNS, &t.Error,
		&created, &started, &completed)
	if err != nil {
		return nil, err
	}
	t.Agent = core.AgentID(agent)
	t.Status = core.TaskStatus(status)
	t.Duration = time.Duration(durationNS)
	if deps != "" {
		if err := json.Unmarshal([]byte(deps), &t.DependsOn); err != nil {
			return nil, fmt.Errorf("unmarshal depends_on: %w", err)
		}
	}
	if quality.Valid {
		t.QualityScore = &quality.Float64
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if t.StartedAt, err = parseNullTime(started); err != nil {
		return nil, err
	}
	if t.CompletedAt, err = parseNullTime(completed); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateDeliverable implements core.Store.
func (s *Store) CreateDeliverable(ctx context.Context, d *core.Deliverable) error {
	scores, err := marshalJSON(d.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	metadata, err := marshalJSON(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO deliverables(id,goal_id,task_id,tenant_id,agent,type,title,body,scores_json,quality_score,status,shipped_via,shipped_at,metadata_json,created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.GoalID, d.TaskID, d.TenantID, string(d.Agent), string(d.Type), d.Title, d.Body,
		scores, d.QualityScore, string(d.Status), nullable(d.ShippedVia), nullTime(d.ShippedAt), metadata, formatTime(d.CreatedAt))
	return err
}

// UpdateDeliverable implements core.Store. Only workflow fields move after
// creation; title/body are immutable by contract (retries insert new rows).
func (s *Store) UpdateDeliverable(ctx context.Context, d *core.Deliverable) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE deliverables SET status=?,shipped_via=?,shipped_at=? WHERE id=?`,
		string(d.Status), nullable(d.ShippedVia), nullTime(d.ShippedAt), d.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GetDeliverable implements core.Store.
func (s *Store) GetDeliverable(ctx context.Context, id string) (*core.Deliverable, error) {
	row := s.DB.QueryRowContext(ctx, deliverableSelect+` WHERE id=?`, id)
	d, err := scanDeliverable(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return d, err
}

// ListDeliverablesByTask implements core.Store in creation order.
func (s *Store) ListDeliverablesByTask(ctx context.Context, taskID string) ([]*core.Deliverable, error) {
	return s.listDeliverables(ctx, deliverableSelect+` WHERE task_id=? ORDER BY created_at, id`, taskID)
}

// ListDeliverablesByGoal implements core.Store in creation order.
func (s *Store) ListDeliverablesByGoal(ctx context.Context, goalID string) ([]*core.Deliverable, error) {
	return s.listDeliverables(ctx, deliverableSelect+` WHERE goal_id=? ORDER BY created_at, id`, goalID)
}

func (s *Store) listDeliverables(ctx context.Context, query, arg string) ([]*core.Deliverable, error) {
	rows, err := s.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*core.Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const deliverableSelect = `SELECT id,goal_id,task_id,tenant_id,agent,type,title,body,COALESCE(scores_json,''),quality_score,status,COALESCE(shipped_via,''),shipped_at,COALESCE(metadata_json,''),created_at FROM deliverables`

func scanDeliverable(row rowScanner) (*core.Deliverable, error) {
	var (
		d                      core.Deliverable
		agent, typ, status     string
		scores, metadata       string
		shippedAt              sql.NullString
		created                string
	)
	err := row.Scan(&d.ID, &d.GoalID, &d.TaskID, &d.TenantID, &agent, &typ, &d.Title, &d.Body,
		&scores, &d.QualityScore, &status, &d.ShippedVia, &shippedAt, &metadata, &created)
	if err != nil {
		return nil, err
	}
	d.Agent = core.AgentID(agent)
	d.Type = core.DeliverableType(typ)
	d.Status = core.DeliverableStatus(status)
	if scores != "" {
		if err := json.Unmarshal([]byte(scores), &d.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if d.ShippedAt, err = parseNullTime(shippedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// AddGoalUsage implements core.Store with an in-database increment.
func (s *Store) AddGoalUsage(ctx context.Context, goalID string, tokens int, cost float64) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE goals SET tokens_used = tokens_used + ?, estimated_cost = estimated_cost + ? WHERE id=?`,
		tokens, cost, goalID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func marshalJSON(v any) (any, error) {
	switch val := v.(type) {
	case []core.TaskSpec:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	case map[core.Dimension]float64:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]string:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(val) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
