package engine

import (
	"context"

	"orchboard/internal/domain"
	"orchboard/internal/events"
	"orchboard/internal/repo"
)

func (e Engine) ListImprovements(ctx context.Context, f repo.ImprovementFilters) ([]domain.Improvement, error) {
	if f.Limit < 0 {
		return nil, invalid("limit", "must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = defaultListLimit
	}
	list, err := e.Store.ListImprovements(ctx, f)
	if err != nil {
		return nil, readErr("list improvements", err)
	}
	if list == nil {
		list = []domain.Improvement{}
	}
	return list, nil
}

type ImprovementOptions struct {
	ProjectID            string   `json:"project_id"`
	TriggerType          string   `json:"trigger_type" validate:"required"`
	TriggerDetails       string   `json:"trigger_details"`
	TargetFiles          string   `json:"target_files"`
	ChangesSummary       string   `json:"changes_summary" validate:"required"`
	BeforeAvgScore       *float64 `json:"before_avg_score"`
	AfterAvgScore        *float64 `json:"after_avg_score"`
	ImprovementConfirmed *bool    `json:"improvement_confirmed"`
	ActorID              string   `json:"-"`
}

// RecordImprovement logs a self-improvement the runtime applied.
func (e Engine) RecordImprovement(ctx context.Context, opts ImprovementOptions) (domain.Improvement, error) {
	if err := e.check(opts); err != nil {
		return domain.Improvement{}, err
	}
	imp := domain.Improvement{
		TriggerType:          opts.TriggerType,
		TriggerDetails:       opts.TriggerDetails,
		TargetFiles:          opts.TargetFiles,
		ChangesSummary:       opts.ChangesSummary,
		AppliedAt:            e.timestamp(),
		BeforeAvgScore:       opts.BeforeAvgScore,
		AfterAvgScore:        opts.AfterAvgScore,
		ImprovementConfirmed: opts.ImprovementConfirmed,
	}
	if opts.ProjectID != "" {
		if _, err := e.Store.GetProject(ctx, opts.ProjectID); err != nil {
			return domain.Improvement{}, notFoundOrRead("get project", err)
		}
		pid := opts.ProjectID
		imp.ProjectID = &pid
	}
	imp, err := e.Store.InsertImprovement(ctx, imp)
	if err != nil {
		return domain.Improvement{}, writeErr("insert improvement", err)
	}
	e.appendEvent(ctx, events.TypeImprovementApplied, opts.ProjectID, "improvement", idString(imp.ID), opts.ActorID, events.EventPayload{"trigger_type": imp.TriggerType})
	return imp, nil
}
