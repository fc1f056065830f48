package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"orchboard/internal/domain"
	"orchboard/internal/engine"
	"orchboard/internal/repo"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		b := input.Body
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			ID:            b.ID,
			Name:          b.Name,
			Description:   b.Description,
			Purpose:       b.Purpose,
			ForWhom:       b.ForWhom,
			Status:        b.Status,
			Priority:      b.Priority,
			RepositoryURL: b.RepositoryURL,
			DeployURL:     b.DeployURL,
			ActorID:       actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects, highest priority first",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProjectsResponse `json:"body"`
	}, error) {
		items, err := e.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Project{}
		}
		return &struct {
			Body ProjectsResponse `json:"body"`
		}{Body: ProjectsResponse{Projects: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Project with its tasks",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body engine.ProjectDetail `json:"body"`
	}, error) {
		detail, err := e.ProjectDetail(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ProjectDetail `json:"body"`
		}{Body: detail}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Update project settings",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		b := input.Body
		p, err := e.UpdateProject(ctx, engine.ProjectUpdateOptions{
			ID:            input.ProjectID,
			Name:          b.Name,
			Description:   b.Description,
			Purpose:       b.Purpose,
			ForWhom:       b.ForWhom,
			Status:        b.Status,
			Priority:      b.Priority,
			RepositoryURL: b.RepositoryURL,
			DeployURL:     b.DeployURL,
			ActorID:       actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})
}

func registerInstructions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-instructions",
		Method:      http.MethodGet,
		Path:        "/instructions",
		Summary:     "Open tasks (pending or in progress)",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
	}) (*struct {
		Body TasksResponse `json:"body"`
	}, error) {
		tasks, err := e.OpenTasks(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TasksResponse `json:"body"`
		}{Body: TasksResponse{Tasks: tasks}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "submit-instruction",
		Method:        http.MethodPost,
		Path:          "/instructions",
		Summary:       "Queue an instruction as a pending task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body InstructionRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		t, err := e.SubmitInstruction(ctx, engine.InstructionOptions{
			ProjectID:   input.Body.ProjectID,
			Instruction: input.Body.Instruction,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{Success: true, Task: t}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSuggestions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-suggestions",
		Method:      http.MethodGet,
		Path:        "/suggestions",
		Summary:     "Suggestions not yet promoted",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
	}) (*struct {
		Body SuggestionsResponse `json:"body"`
	}, error) {
		list, err := e.ListSuggestions(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SuggestionsResponse `json:"body"`
		}{Body: SuggestionsResponse{Suggestions: list}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-suggestion",
		Method:        http.MethodPost,
		Path:          "/suggestions",
		Summary:       "Add a custom suggestion",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateSuggestionRequest `json:"body"`
	}) (*struct {
		Body domain.Suggestion `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		s, err := e.CreateSuggestion(ctx, engine.SuggestionCreateOptions{
			ProjectID:   input.Body.ProjectID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Suggestion `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-suggestion",
		Method:        http.MethodDelete,
		Path:          "/suggestions/{id}",
		Summary:       "Delete a suggestion",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteSuggestion(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerRuns(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-run",
		Method:        http.MethodPost,
		Path:          "/runs",
		Summary:       "Record that a run started",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body StartRunRequest `json:"body"`
	}) (*struct {
		Body domain.Run `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		run, err := e.StartRun(ctx, engine.RunStartOptions{
			ProjectID:   input.Body.ProjectID,
			TaskID:      input.Body.TaskID,
			Instruction: input.Body.Instruction,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Run `json:"body"`
		}{Body: run}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "finish-run",
		Method:      http.MethodPost,
		Path:        "/runs/{id}/finish",
		Summary:     "Record that a run finished",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64            `path:"id"`
		Body FinishRunRequest `json:"body"`
	}) (*struct {
		Body domain.Run `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		run, err := e.FinishRun(ctx, engine.RunFinishOptions{
			ID:       input.ID,
			Status:   input.Body.Status,
			Progress: input.Body.Progress,
			Note:     input.Body.Note,
			ActorID:  actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Run `json:"body"`
		}{Body: run}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "record-evaluation",
		Method:        http.MethodPost,
		Path:          "/runs/{id}/evaluations",
		Summary:       "Record an evaluation of a run",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body EvaluationRequest `json:"body"`
	}) (*struct {
		Body domain.Evaluation `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		ev, err := e.RecordEvaluation(ctx, engine.EvaluationOptions{
			RunID:           input.ID,
			OverallScore:    input.Body.OverallScore,
			FailureCategory: input.Body.FailureCategory,
			Summary:         input.Body.Summary,
			ActorID:         actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Evaluation `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "record-tool-call",
		Method:        http.MethodPost,
		Path:          "/runs/{id}/tool-calls",
		Summary:       "Record a tool invocation made by a run",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64           `path:"id"`
		Body ToolCallRequest `json:"body"`
	}) (*struct {
		Body domain.ToolCall `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		tc, err := e.RecordToolCall(ctx, engine.ToolCallOptions{
			RunID:    input.ID,
			ToolName: input.Body.ToolName,
			Category: input.Body.Category,
			Success:  input.Body.Success,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ToolCall `json:"body"`
		}{Body: tc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-evaluations",
		Method:      http.MethodGet,
		Path:        "/evaluations",
		Summary:     "Recent evaluations with their runs",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body EvaluationsResponse `json:"body"`
	}, error) {
		list, err := e.ListEvaluations(ctx, repo.EvaluationFilters{ProjectID: input.ProjectID, Limit: normalizeLimit(input.Limit)})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EvaluationsResponse `json:"body"`
		}{Body: EvaluationsResponse{Evaluations: list}}, nil
	})
}

func registerImprovements(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-improvements",
		Method:      http.MethodGet,
		Path:        "/improvements",
		Summary:     "Applied self-improvements, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body ImprovementsResponse `json:"body"`
	}, error) {
		list, err := e.ListImprovements(ctx, repo.ImprovementFilters{ProjectID: input.ProjectID, Limit: normalizeLimit(input.Limit)})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ImprovementsResponse `json:"body"`
		}{Body: ImprovementsResponse{Improvements: list}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "record-improvement",
		Method:        http.MethodPost,
		Path:          "/improvements",
		Summary:       "Record an applied self-improvement",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body ImprovementRequest `json:"body"`
	}) (*struct {
		Body domain.Improvement `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		b := input.Body
		imp, err := e.RecordImprovement(ctx, engine.ImprovementOptions{
			ProjectID:            b.ProjectID,
			TriggerType:          b.TriggerType,
			TriggerDetails:       b.TriggerDetails,
			TargetFiles:          b.TargetFiles,
			ChangesSummary:       b.ChangesSummary,
			BeforeAvgScore:       b.BeforeAvgScore,
			AfterAvgScore:        b.AfterAvgScore,
			ImprovementConfirmed: b.ImprovementConfirmed,
			ActorID:              actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Improvement `json:"body"`
		}{Body: imp}, nil
	})
}

func registerProfile(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-user-profile",
		Method:      http.MethodGet,
		Path:        "/user-profile",
		Summary:     "Operator profile",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.UserProfile `json:"body"`
	}, error) {
		p, err := e.UserProfile(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.UserProfile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-user-profile",
		Method:      http.MethodPut,
		Path:        "/user-profile",
		Summary:     "Replace the operator profile",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body ProfileRequest `json:"body"`
	}) (*struct {
		Body domain.UserProfile `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		p, err := e.SaveUserProfile(ctx, engine.ProfileOptions{
			CurrentSituation:  input.Body.CurrentSituation,
			CurrentChallenges: input.Body.CurrentChallenges,
			CurrentGoals:      input.Body.CurrentGoals,
			ActorID:           actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.UserProfile `json:"body"`
		}{Body: p}, nil
	})
}
