package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"orchboard/internal/domain"
)

const taskColumns = `id,project_id,title,status,priority,created_at,completed_at,completion_note`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var completedAt, note sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &t.CreatedAt, &completedAt, &note)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.CompletedAt = stringPtr(completedAt)
	t.CompletionNote = stringPtr(note)
	return t, nil
}

// InsertTasks writes all tasks in one transaction and returns them with their
// assigned ids. Either every task is created or none is.
func (r Repo) InsertTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	created := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		res, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id,title,status,priority,created_at,completed_at,completion_note) VALUES (?,?,?,?,?,?,?)`,
			t.ProjectID, t.Title, t.Status, t.Priority, t.CreatedAt, nullableStringPtr(t.CompletedAt), nullableStringPtr(t.CompletionNote))
		if err != nil {
			return nil, fmt.Errorf("insert task %q: %w", t.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		t.ID = id
		created = append(created, t)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTaskStatus moves a task to status, recording completion details for
// terminal states.
func (r Repo) UpdateTaskStatus(ctx context.Context, id int64, status string, completedAt, note *string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET status=?, completed_at=COALESCE(?,completed_at), completion_note=COALESCE(?,completion_note) WHERE id=?`,
		status, nullableStringPtr(completedAt), nullableStringPtr(note), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type TaskFilters struct {
	ProjectID string
	Statuses  []string
	Limit     int
}

// ListTasks returns tasks newest first.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, s)
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ",")+")")
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) CountTasksWithStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM tasks WHERE status=?`, status).Scan(&n)
	return n, err
}

func (r Repo) CountTasksByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM tasks WHERE project_id=? GROUP BY status`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}
