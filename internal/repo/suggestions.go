package repo

import (
	"context"
	"database/sql"

	"orchboard/internal/domain"
)

const suggestionColumns = `id,project_id,title,description,source,priority,is_selected,created_by,created_at`

func scanSuggestion(row rowScanner) (domain.Suggestion, error) {
	var s domain.Suggestion
	err := row.Scan(&s.ID, &s.ProjectID, &s.Title, &s.Description, &s.Source, &s.Priority, &s.IsSelected, &s.CreatedBy, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) querySuggestions(ctx context.Context, query string, args ...any) ([]domain.Suggestion, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) InsertSuggestion(ctx context.Context, s domain.Suggestion) (domain.Suggestion, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO suggestions(project_id,title,description,source,priority,is_selected,created_by,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		s.ProjectID, s.Title, s.Description, s.Source, s.Priority, s.IsSelected, s.CreatedBy, s.CreatedAt)
	if err != nil {
		return s, err
	}
	s.ID, err = res.LastInsertId()
	return s, err
}

// ListCandidateSuggestions returns suggestions not yet promoted, newest first.
func (r Repo) ListCandidateSuggestions(ctx context.Context, projectID string) ([]domain.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE is_selected=0`
	var args []any
	if projectID != "" {
		query += ` AND project_id=?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return r.querySuggestions(ctx, query, args...)
}

// ListSuggestionsByIDs returns the suggestions whose ids are in ids, whether or
// not they were promoted before. Unknown ids are skipped.
func (r Repo) ListSuggestionsByIDs(ctx context.Context, ids []int64) ([]domain.Suggestion, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	return r.querySuggestions(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id IN `+in+` ORDER BY id ASC`, args...)
}

// MarkSuggestionsSelected flags the given suggestions as promoted and reports
// how many rows changed.
func (r Repo) MarkSuggestionsSelected(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := r.DB.ExecContext(ctx, `UPDATE suggestions SET is_selected=1 WHERE id IN `+in, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) DeleteSuggestion(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM suggestions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
