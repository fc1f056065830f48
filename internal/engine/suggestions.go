package engine

import (
	"context"
	"strings"

	"orchboard/internal/domain"
	"orchboard/internal/events"
)

const customSuggestionAuthor = "user"

// ListSuggestions returns the suggestions still open for promotion.
func (e Engine) ListSuggestions(ctx context.Context, projectID string) ([]domain.Suggestion, error) {
	list, err := e.Store.ListCandidateSuggestions(ctx, projectID)
	if err != nil {
		return nil, readErr("list suggestions", err)
	}
	if list == nil {
		list = []domain.Suggestion{}
	}
	return list, nil
}

type SuggestionCreateOptions struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	ActorID     string `json:"-"`
}

// CreateSuggestion records an operator-written suggestion.
func (e Engine) CreateSuggestion(ctx context.Context, opts SuggestionCreateOptions) (domain.Suggestion, error) {
	opts.Title = strings.TrimSpace(opts.Title)
	if err := e.check(opts); err != nil {
		return domain.Suggestion{}, err
	}
	if _, err := e.Store.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Suggestion{}, notFoundOrRead("get project", err)
	}
	s, err := e.Store.InsertSuggestion(ctx, domain.Suggestion{
		ProjectID:   opts.ProjectID,
		Title:       opts.Title,
		Description: opts.Description,
		Source:      domain.SourceCustom,
		Priority:    0,
		CreatedBy:   customSuggestionAuthor,
		CreatedAt:   e.timestamp(),
	})
	if err != nil {
		return domain.Suggestion{}, writeErr("insert suggestion", err)
	}
	e.appendEvent(ctx, events.TypeSuggestionCreated, s.ProjectID, "suggestion", idString(s.ID), opts.ActorID, events.EventPayload{"source": s.Source})
	return s, nil
}

func (e Engine) DeleteSuggestion(ctx context.Context, id int64, actorID string) error {
	if err := e.Store.DeleteSuggestion(ctx, id); err != nil {
		return notFoundOrWrite("delete suggestion", err)
	}
	e.appendEvent(ctx, events.TypeSuggestionDeleted, "", "suggestion", idString(id), actorID, nil)
	return nil
}
