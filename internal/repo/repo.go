package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"orchboard/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

const projectColumns = `id,name,description,purpose,for_whom,status,priority,repository_url,deploy_url,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (domain.Project, error) {
	var p domain.Project
	var repoURL, deployURL sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Purpose, &p.ForWhom, &p.Status, &p.Priority, &repoURL, &deployURL, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.RepositoryURL = stringPtr(repoURL)
	p.DeployURL = stringPtr(deployURL)
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Description, p.Purpose, p.ForWhom, p.Status, p.Priority,
		nullableStringPtr(p.RepositoryURL), nullableStringPtr(p.DeployURL), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

// ListProjects returns projects in display order (highest priority first).
func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY priority DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ProjectUpdate carries the settings fields to change; nil fields are left alone.
type ProjectUpdate struct {
	Name          *string
	Description   *string
	Purpose       *string
	ForWhom       *string
	Status        *string
	Priority      *int
	RepositoryURL *string
	DeployURL     *string
	UpdatedAt     string
}

func (r Repo) UpdateProject(ctx context.Context, id string, u ProjectUpdate) error {
	var (
		fields []string
		args   []any
	)
	set := func(column string, v any) {
		fields = append(fields, column+"=?")
		args = append(args, v)
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Purpose != nil {
		set("purpose", *u.Purpose)
	}
	if u.ForWhom != nil {
		set("for_whom", *u.ForWhom)
	}
	if u.Status != nil {
		set("status", *u.Status)
	}
	if u.Priority != nil {
		set("priority", *u.Priority)
	}
	if u.RepositoryURL != nil {
		set("repository_url", nullable(*u.RepositoryURL))
	}
	if u.DeployURL != nil {
		set("deploy_url", nullable(*u.DeployURL))
	}
	if len(fields) == 0 {
		return nil
	}
	set("updated_at", u.UpdatedAt)
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBoolPtr(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// inClause renders "(?,?,?)" for ids and the matching args.
func inClause(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return "(" + strings.Join(marks, ",") + ")", args
}
