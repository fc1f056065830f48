package server

import (
	"orchboard/internal/domain"
	"orchboard/internal/engine"
)

type PromoteRequest struct {
	SuggestionIDs []int64 `json:"suggestion_ids" doc:"Suggestions to turn into pending tasks"`
}

type PromoteResponse struct {
	Success   bool          `json:"success"`
	Tasks     []domain.Task `json:"tasks"`
	Count     int           `json:"count"`
	MarkError string        `json:"mark_error,omitempty" doc:"Set when tasks were created but the suggestions stayed unselected"`
}

type CreateProjectRequest struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Purpose       string  `json:"purpose,omitempty"`
	ForWhom       string  `json:"for_whom,omitempty"`
	Status        string  `json:"status,omitempty" enum:"active,planning,paused,completed,archived"`
	Priority      *int    `json:"priority,omitempty"`
	RepositoryURL *string `json:"repository_url,omitempty"`
	DeployURL     *string `json:"deploy_url,omitempty"`
}

type UpdateProjectRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Purpose       *string `json:"purpose,omitempty"`
	ForWhom       *string `json:"for_whom,omitempty"`
	Status        *string `json:"status,omitempty" enum:"active,planning,paused,completed,archived"`
	Priority      *int    `json:"priority,omitempty"`
	RepositoryURL *string `json:"repository_url,omitempty"`
	DeployURL     *string `json:"deploy_url,omitempty"`
}

type ProjectsResponse struct {
	Projects []domain.Project `json:"projects"`
}

type InstructionRequest struct {
	ProjectID   string `json:"project_id"`
	Instruction string `json:"instruction"`
}

type TaskResponse struct {
	Success bool        `json:"success"`
	Task    domain.Task `json:"task"`
}

type TasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type CreateSuggestionRequest struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type SuggestionsResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
}

type StartRunRequest struct {
	ProjectID   string `json:"project_id"`
	TaskID      *int64 `json:"task_id,omitempty"`
	Instruction string `json:"instruction,omitempty"`
}

type FinishRunRequest struct {
	Status   string `json:"status" enum:"completed,failed"`
	Progress string `json:"progress,omitempty"`
	Note     string `json:"note,omitempty"`
}

type EvaluationRequest struct {
	OverallScore    float64 `json:"overall_score"`
	FailureCategory string  `json:"failure_category,omitempty"`
	Summary         string  `json:"summary,omitempty"`
}

type ToolCallRequest struct {
	ToolName string `json:"tool_name"`
	Category string `json:"category,omitempty"`
	Success  bool   `json:"success"`
}

type EvaluationsResponse struct {
	Evaluations []domain.EvaluationWithRun `json:"evaluations"`
}

type ImprovementRequest struct {
	ProjectID            string   `json:"project_id,omitempty"`
	TriggerType          string   `json:"trigger_type"`
	TriggerDetails       string   `json:"trigger_details,omitempty"`
	TargetFiles          string   `json:"target_files,omitempty"`
	ChangesSummary       string   `json:"changes_summary"`
	BeforeAvgScore       *float64 `json:"before_avg_score,omitempty"`
	AfterAvgScore        *float64 `json:"after_avg_score,omitempty"`
	ImprovementConfirmed *bool    `json:"improvement_confirmed,omitempty"`
}

type ImprovementsResponse struct {
	Improvements []domain.Improvement `json:"improvements"`
}

type ProfileRequest struct {
	CurrentSituation  string   `json:"current_situation"`
	CurrentChallenges []string `json:"current_challenges,omitempty"`
	CurrentGoals      []string `json:"current_goals,omitempty"`
}

type EventsResponse struct {
	Events []domain.Event `json:"events"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

type APIKeysResponse struct {
	Keys []domain.APIKey `json:"keys"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Source  string `json:"source"`
}

type TokenRequest struct {
	Subject    string `json:"subject"`
	TTLSeconds int    `json:"ttl_seconds,omitempty" minimum:"0"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

func promoteResponse(res engine.PromotionResult) PromoteResponse {
	tasks := res.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return PromoteResponse{
		Success:   true,
		Tasks:     tasks,
		Count:     res.Count,
		MarkError: res.MarkError,
	}
}
