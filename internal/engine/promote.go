package engine

import (
	"context"

	"orchboard/internal/domain"
	"orchboard/internal/events"
	"orchboard/internal/repo"
)

type PromotionResult struct {
	Tasks []domain.Task `json:"tasks"`
	Count int           `json:"count"`
	// MarkError is set when the tasks were created but the suggestions could
	// not be flagged as selected. The promotion still counts as a success.
	MarkError string `json:"mark_error,omitempty"`
}

// PromoteSuggestions turns the given suggestions into pending tasks.
//
// Tasks are inserted before any suggestion is marked selected. An insert
// failure aborts with nothing marked; a marking failure is logged and the
// created tasks are still returned. Concurrent promotions of the same ids are
// not excluded and may both create tasks.
func (e Engine) PromoteSuggestions(ctx context.Context, ids []int64, actorID string) (PromotionResult, error) {
	if len(ids) == 0 {
		return PromotionResult{}, invalid("suggestion_ids", "at least one suggestion id is required")
	}
	suggestions, err := e.Store.ListSuggestionsByIDs(ctx, ids)
	if err != nil {
		return PromotionResult{}, readErr("fetch suggestions", err)
	}
	if len(suggestions) == 0 {
		return PromotionResult{}, repo.ErrNotFound
	}

	now := e.timestamp()
	tasks := make([]domain.Task, 0, len(suggestions))
	fetched := make([]int64, 0, len(suggestions))
	for _, s := range suggestions {
		tasks = append(tasks, domain.Task{
			ProjectID: s.ProjectID,
			Title:     s.Title,
			Status:    domain.TaskPending,
			Priority:  domain.DefaultTaskPriority,
			CreatedAt: now,
		})
		fetched = append(fetched, s.ID)
	}
	created, err := e.Store.InsertTasks(ctx, tasks)
	if err != nil {
		return PromotionResult{}, writeErr("insert tasks", err)
	}

	res := PromotionResult{Tasks: created, Count: len(created)}
	if _, err := e.Store.MarkSuggestionsSelected(ctx, fetched); err != nil {
		e.warnf("promoted %d suggestions but could not mark them selected: %v", len(fetched), err)
		res.MarkError = err.Error()
	}
	e.Metrics.Promoted(len(created), res.MarkError != "")

	taskIDs := make([]int64, 0, len(created))
	for _, t := range created {
		taskIDs = append(taskIDs, t.ID)
	}
	e.appendEvent(ctx, events.TypeSuggestionsPromoted, "", "suggestion", "", actorID, events.EventPayload{
		"suggestion_ids": fetched,
		"task_ids":       taskIDs,
		"marked":         res.MarkError == "",
	})
	return res, nil
}
