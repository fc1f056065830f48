package repo

import (
	"context"
	"database/sql"

	"orchboard/internal/domain"
)

func (r Repo) InsertImprovement(ctx context.Context, imp domain.Improvement) (domain.Improvement, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO improvements(project_id,trigger_type,trigger_details,target_files,changes_summary,applied_at,rollback_at,rollback_reason,before_avg_score,after_avg_score,improvement_confirmed)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		nullableStringPtr(imp.ProjectID), imp.TriggerType, imp.TriggerDetails, imp.TargetFiles, imp.ChangesSummary, imp.AppliedAt,
		nullableStringPtr(imp.RollbackAt), nullableStringPtr(imp.RollbackReason),
		nullableFloatPtr(imp.BeforeAvgScore), nullableFloatPtr(imp.AfterAvgScore), nullableBoolPtr(imp.ImprovementConfirmed))
	if err != nil {
		return imp, err
	}
	imp.ID, err = res.LastInsertId()
	return imp, err
}

type ImprovementFilters struct {
	ProjectID string
	Limit     int
}

// ListImprovements returns improvements most recently applied first.
func (r Repo) ListImprovements(ctx context.Context, f ImprovementFilters) ([]domain.Improvement, error) {
	query := `SELECT id,project_id,trigger_type,trigger_details,target_files,changes_summary,applied_at,rollback_at,rollback_reason,before_avg_score,after_avg_score,improvement_confirmed FROM improvements`
	var args []any
	if f.ProjectID != "" {
		query += ` WHERE project_id=?`
		args = append(args, f.ProjectID)
	}
	query += ` ORDER BY applied_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Improvement
	for rows.Next() {
		var imp domain.Improvement
		var projectID, rollbackAt, rollbackReason sql.NullString
		var before, after sql.NullFloat64
		var confirmed sql.NullBool
		if err := rows.Scan(&imp.ID, &projectID, &imp.TriggerType, &imp.TriggerDetails, &imp.TargetFiles, &imp.ChangesSummary, &imp.AppliedAt,
			&rollbackAt, &rollbackReason, &before, &after, &confirmed); err != nil {
			return nil, err
		}
		imp.ProjectID = stringPtr(projectID)
		imp.RollbackAt = stringPtr(rollbackAt)
		imp.RollbackReason = stringPtr(rollbackReason)
		imp.BeforeAvgScore = floatPtr(before)
		imp.AfterAvgScore = floatPtr(after)
		if confirmed.Valid {
			v := confirmed.Bool
			imp.ImprovementConfirmed = &v
		}
		res = append(res, imp)
	}
	return res, rows.Err()
}
