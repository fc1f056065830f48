package repo

import (
	"context"
	"database/sql"
	"strings"

	"orchboard/internal/domain"
)

const runColumns = `id,task_id,project_id,instruction,status,started_at,finished_at,current_progress`

func scanRun(row rowScanner) (domain.Run, error) {
	var run domain.Run
	var taskID sql.NullInt64
	var finishedAt, progress sql.NullString
	err := row.Scan(&run.ID, &taskID, &run.ProjectID, &run.Instruction, &run.Status, &run.StartedAt, &finishedAt, &progress)
	if err == sql.ErrNoRows {
		return run, ErrNotFound
	}
	if err != nil {
		return run, err
	}
	run.TaskID = int64Ptr(taskID)
	run.FinishedAt = stringPtr(finishedAt)
	run.CurrentProgress = stringPtr(progress)
	return run, nil
}

func (r Repo) InsertRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO runs(task_id,project_id,instruction,status,started_at,finished_at,current_progress) VALUES (?,?,?,?,?,?,?)`,
		nullableInt64Ptr(run.TaskID), run.ProjectID, run.Instruction, run.Status, run.StartedAt,
		nullableStringPtr(run.FinishedAt), nullableStringPtr(run.CurrentProgress))
	if err != nil {
		return run, err
	}
	run.ID, err = res.LastInsertId()
	return run, err
}

func (r Repo) GetRun(ctx context.Context, id int64) (domain.Run, error) {
	return scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
}

// UpdateRun rewrites the mutable run fields (status, finish time, progress).
func (r Repo) UpdateRun(ctx context.Context, run domain.Run) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE runs SET status=?, finished_at=?, current_progress=? WHERE id=?`,
		run.Status, nullableStringPtr(run.FinishedAt), nullableStringPtr(run.CurrentProgress), run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRunningRuns returns every run with status=running joined to its task and
// project for display, most recently started first.
func (r Repo) ListRunningRuns(ctx context.Context) ([]domain.RunningRun, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT r.id,r.task_id,r.project_id,r.instruction,r.status,r.started_at,r.finished_at,r.current_progress,
	t.id,t.title,t.status,p.id,p.name
FROM runs r
LEFT JOIN tasks t ON t.id=r.task_id
LEFT JOIN projects p ON p.id=r.project_id
WHERE r.status=?
ORDER BY r.started_at DESC, r.id DESC`, domain.RunRunning)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RunningRun
	for rows.Next() {
		var rr domain.RunningRun
		var taskID, joinedTaskID sql.NullInt64
		var finishedAt, progress, taskTitle, taskStatus, projectID, projectName sql.NullString
		if err := rows.Scan(&rr.ID, &taskID, &rr.ProjectID, &rr.Instruction, &rr.Status, &rr.StartedAt, &finishedAt, &progress,
			&joinedTaskID, &taskTitle, &taskStatus, &projectID, &projectName); err != nil {
			return nil, err
		}
		rr.TaskID = int64Ptr(taskID)
		rr.FinishedAt = stringPtr(finishedAt)
		rr.CurrentProgress = stringPtr(progress)
		if joinedTaskID.Valid {
			rr.Task = &domain.RunTask{ID: joinedTaskID.Int64, Title: taskTitle.String, Status: taskStatus.String}
		}
		if projectID.Valid {
			rr.Project = &domain.RunProject{ID: projectID.String, Name: projectName.String}
		}
		res = append(res, rr)
	}
	return res, rows.Err()
}

func (r Repo) InsertEvaluation(ctx context.Context, ev domain.Evaluation) (domain.Evaluation, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO evaluations(run_id,overall_score,failure_category,summary,evaluated_at) VALUES (?,?,?,?,?)`,
		ev.RunID, ev.OverallScore, nullableStringPtr(ev.FailureCategory), nullableStringPtr(ev.Summary), ev.EvaluatedAt)
	if err != nil {
		return ev, err
	}
	ev.ID, err = res.LastInsertId()
	return ev, err
}

func (r Repo) InsertToolCall(ctx context.Context, tc domain.ToolCall) (domain.ToolCall, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO tool_calls(run_id,tool_name,category,success,created_at) VALUES (?,?,?,?,?)`,
		tc.RunID, tc.ToolName, nullableStringPtr(tc.Category), tc.Success, tc.CreatedAt)
	if err != nil {
		return tc, err
	}
	tc.ID, err = res.LastInsertId()
	return tc, err
}

// WindowFilter selects records at or after Since (RFC3339, UTC), optionally
// restricted to runs of one project.
type WindowFilter struct {
	Since     string
	ProjectID string
}

func (f WindowFilter) where(tsColumn string) (string, []any) {
	clauses := []string{tsColumn + ">=?"}
	args := []any{f.Since}
	if f.ProjectID != "" {
		clauses = append(clauses, "r.project_id=?")
		args = append(args, f.ProjectID)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// ListEvaluationsSince returns evaluations inside the window, oldest first.
func (r Repo) ListEvaluationsSince(ctx context.Context, f WindowFilter) ([]domain.Evaluation, error) {
	where, args := f.where("e.evaluated_at")
	return r.queryEvaluations(ctx, `SELECT e.id,e.run_id,e.overall_score,e.failure_category,e.summary,e.evaluated_at
FROM evaluations e JOIN runs r ON r.id=e.run_id `+where+` ORDER BY e.evaluated_at ASC, e.id ASC`, args)
}

// ListFailedEvaluationsSince returns evaluations inside the window that carry
// a failure category.
func (r Repo) ListFailedEvaluationsSince(ctx context.Context, f WindowFilter) ([]domain.Evaluation, error) {
	where, args := f.where("e.evaluated_at")
	return r.queryEvaluations(ctx, `SELECT e.id,e.run_id,e.overall_score,e.failure_category,e.summary,e.evaluated_at
FROM evaluations e JOIN runs r ON r.id=e.run_id `+where+` AND e.failure_category IS NOT NULL ORDER BY e.evaluated_at ASC, e.id ASC`, args)
}

func (r Repo) queryEvaluations(ctx context.Context, query string, args []any) ([]domain.Evaluation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Evaluation
	for rows.Next() {
		var ev domain.Evaluation
		var category, summary sql.NullString
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.OverallScore, &category, &summary, &ev.EvaluatedAt); err != nil {
			return nil, err
		}
		ev.FailureCategory = stringPtr(category)
		ev.Summary = stringPtr(summary)
		res = append(res, ev)
	}
	return res, rows.Err()
}

// ListToolCallsSince returns tool calls inside the window.
func (r Repo) ListToolCallsSince(ctx context.Context, f WindowFilter) ([]domain.ToolCall, error) {
	where, args := f.where("c.created_at")
	rows, err := r.DB.QueryContext(ctx, `SELECT c.id,c.run_id,c.tool_name,c.category,c.success,c.created_at
FROM tool_calls c JOIN runs r ON r.id=c.run_id `+where+` ORDER BY c.created_at ASC, c.id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ToolCall
	for rows.Next() {
		var tc domain.ToolCall
		var category sql.NullString
		if err := rows.Scan(&tc.ID, &tc.RunID, &tc.ToolName, &category, &tc.Success, &tc.CreatedAt); err != nil {
			return nil, err
		}
		tc.Category = stringPtr(category)
		res = append(res, tc)
	}
	return res, rows.Err()
}

type EvaluationFilters struct {
	ProjectID string
	Limit     int
}

// ListEvaluations returns evaluations joined to their runs, newest first.
func (r Repo) ListEvaluations(ctx context.Context, f EvaluationFilters) ([]domain.EvaluationWithRun, error) {
	query := `SELECT e.id,e.run_id,e.overall_score,e.failure_category,e.summary,e.evaluated_at,r.project_id,r.instruction,r.status,r.started_at
FROM evaluations e JOIN runs r ON r.id=e.run_id`
	var args []any
	if f.ProjectID != "" {
		query += ` WHERE r.project_id=?`
		args = append(args, f.ProjectID)
	}
	query += ` ORDER BY e.evaluated_at DESC, e.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EvaluationWithRun
	for rows.Next() {
		var ev domain.EvaluationWithRun
		var category, summary sql.NullString
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.OverallScore, &category, &summary, &ev.EvaluatedAt,
			&ev.ProjectID, &ev.Instruction, &ev.RunStatus, &ev.RunStartedAt); err != nil {
			return nil, err
		}
		ev.FailureCategory = stringPtr(category)
		ev.Summary = stringPtr(summary)
		res = append(res, ev)
	}
	return res, rows.Err()
}
