package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"grantline/internal/domain"
)

// TaskFilters narrows ListTasks. Derived selects milestone tasks (true), user
// tasks (false) or both (nil).
type TaskFilters struct {
	GrantID  string
	Status   string
	Assignee string
	Derived  *bool
	Limit    int
}

const taskColumns = `id,title,description,grant_id,project_id,due_date,status,priority,assignee,milestone_key,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var description, grantID, projectID, dueDate, assignee, milestoneKey sql.NullString
	err := scan(&t.ID, &t.Title, &description, &grantID, &projectID, &dueDate, &t.Status, &t.Priority, &assignee, &milestoneKey, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Description = description.String
	t.Assignee = assignee.String
	t.GrantID = stringPtr(grantID)
	t.ProjectID = stringPtr(projectID)
	t.DueDate = stringPtr(dueDate)
	t.MilestoneKey = stringPtr(milestoneKey)
	return t, nil
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	return listTasks(ctx, r.DB, f)
}

func (r Repo) ListTasksTx(ctx context.Context, tx *sql.Tx, f TaskFilters) ([]domain.Task, error) {
	return listTasks(ctx, tx, f)
}

func listTasks(ctx context.Context, q querier, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.GrantID != "" {
		clauses = append(clauses, "grant_id=?")
		args = append(args, f.GrantID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Assignee != "" {
		clauses = append(clauses, "assignee=?")
		args = append(args, f.Assignee)
	}
	if f.Derived != nil {
		if *f.Derived {
			clauses = append(clauses, "milestone_key IS NOT NULL")
		} else {
			clauses = append(clauses, "milestone_key IS NULL")
		}
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY due_date IS NULL, due_date, created_at, id`, taskColumns, where)
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTask(ctx, r.DB, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return getTask(ctx, tx, id)
}

func getTask(ctx context.Context, q querier, id string) (domain.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) UpsertTask(ctx context.Context, t domain.Task) error {
	return upsertTask(ctx, r.DB, t)
}

func (r Repo) UpsertTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	return upsertTask(ctx, tx, t)
}

func upsertTask(ctx context.Context, q querier, t domain.Task) error {
	_, err := q.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET title=excluded.title, description=excluded.description, grant_id=excluded.grant_id,
project_id=excluded.project_id, due_date=excluded.due_date, status=excluded.status, priority=excluded.priority,
assignee=excluded.assignee, milestone_key=excluded.milestone_key, updated_at=excluded.updated_at`,
		t.ID, t.Title, nullable(t.Description), nullableStringPtr(t.GrantID), nullableStringPtr(t.ProjectID), nullableStringPtr(t.DueDate),
		t.Status, t.Priority, nullable(t.Assignee), nullableStringPtr(t.MilestoneKey), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	return deleteTask(ctx, r.DB, id)
}

func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, id string) error {
	return deleteTask(ctx, tx, id)
}

func deleteTask(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
