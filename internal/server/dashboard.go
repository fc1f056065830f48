package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"orchboard/internal/engine"
)

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Dashboard overview",
		Description: "Each section degrades to empty on its own read failure and is named in degraded.",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.StatusOverview `json:"body"`
	}, error) {
		return &struct {
			Body engine.StatusOverview `json:"body"`
		}{Body: e.Status(ctx)}, nil
	})
}

func registerGovernor(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "running-tasks",
		Method:      http.MethodGet,
		Path:        "/running-tasks",
		Summary:     "Running runs and remaining capacity",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.RunningStatus `json:"body"`
	}, error) {
		status, err := e.RunningStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.RunningStatus `json:"body"`
		}{Body: status}, nil
	})
}

func registerPromotion(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "promote-suggestions",
		Method:      http.MethodPost,
		Path:        "/suggestions/execute",
		Summary:     "Promote suggestions to pending tasks",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body PromoteRequest `json:"body"`
	}) (*struct {
		Body PromoteResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		res, err := e.PromoteSuggestions(ctx, input.Body.SuggestionIDs, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PromoteResponse `json:"body"`
		}{Body: promoteResponse(res)}, nil
	})
}

func registerAnalytics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "analytics",
		Method:      http.MethodGet,
		Path:        "/analytics",
		Summary:     "Score trend, failure categories and tool usage",
		Description: "A failing segment is returned empty and listed in degraded; the request still succeeds.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Days      int    `query:"days" doc:"Window length in days; defaults to analytics.default_days"`
		ProjectID string `query:"project_id"`
	}) (*struct {
		Body engine.Analytics `json:"body"`
	}, error) {
		res, err := e.Analytics(ctx, engine.AnalyticsQuery{Days: input.Days, ProjectID: input.ProjectID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Analytics `json:"body"`
		}{Body: res}, nil
	})
}
