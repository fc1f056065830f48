package domain

const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
	TaskFailed     = "failed"

	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"

	SourceAIProposal = "ai_proposal"
	SourceBacklog    = "backlog"
	SourceCustom     = "custom"

	DefaultTaskPriority = "normal"
)

type Project struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Purpose       string  `json:"purpose"`
	ForWhom       string  `json:"for_whom"`
	Status        string  `json:"status" enum:"active,planning,paused,completed,archived"`
	Priority      int     `json:"priority"`
	RepositoryURL *string `json:"repository_url,omitempty"`
	DeployURL     *string `json:"deploy_url,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID             int64   `json:"id"`
	ProjectID      string  `json:"project_id"`
	Title          string  `json:"title"`
	Status         string  `json:"status" enum:"pending,in_progress,done,failed"`
	Priority       string  `json:"priority"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
	CompletionNote *string `json:"completion_note,omitempty"`
}

type Run struct {
	ID              int64   `json:"id"`
	TaskID          *int64  `json:"task_id,omitempty"`
	ProjectID       string  `json:"project_id"`
	Instruction     string  `json:"instruction"`
	Status          string  `json:"status" enum:"running,completed,failed"`
	StartedAt       string  `json:"started_at" format:"date-time"`
	FinishedAt      *string `json:"finished_at,omitempty" format:"date-time"`
	CurrentProgress *string `json:"current_progress,omitempty"`
}

// RunTask and RunProject are the display joins attached to a running run.
type RunTask struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type RunProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RunningRun struct {
	Run
	Task    *RunTask    `json:"task,omitempty"`
	Project *RunProject `json:"project,omitempty"`
}

type Evaluation struct {
	ID              int64   `json:"id"`
	RunID           int64   `json:"run_id"`
	OverallScore    float64 `json:"overall_score"`
	FailureCategory *string `json:"failure_category,omitempty"`
	Summary         *string `json:"summary,omitempty"`
	EvaluatedAt     string  `json:"evaluated_at" format:"date-time"`
}

// EvaluationWithRun is an evaluation joined to the run it judges.
type EvaluationWithRun struct {
	Evaluation
	ProjectID    string `json:"project_id"`
	Instruction  string `json:"instruction"`
	RunStatus    string `json:"run_status"`
	RunStartedAt string `json:"run_started_at" format:"date-time"`
}

type ToolCall struct {
	ID        int64   `json:"id"`
	RunID     int64   `json:"run_id"`
	ToolName  string  `json:"tool_name"`
	Category  *string `json:"category,omitempty"`
	Success   bool    `json:"success"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type Suggestion struct {
	ID          int64  `json:"id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source" enum:"ai_proposal,backlog,custom"`
	Priority    int    `json:"priority"`
	IsSelected  bool   `json:"is_selected"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type Improvement struct {
	ID                   int64    `json:"id"`
	ProjectID            *string  `json:"project_id,omitempty"`
	TriggerType          string   `json:"trigger_type"`
	TriggerDetails       string   `json:"trigger_details"`
	TargetFiles          string   `json:"target_files"`
	ChangesSummary       string   `json:"changes_summary"`
	AppliedAt            string   `json:"applied_at" format:"date-time"`
	RollbackAt           *string  `json:"rollback_at,omitempty" format:"date-time"`
	RollbackReason       *string  `json:"rollback_reason,omitempty"`
	BeforeAvgScore       *float64 `json:"before_avg_score,omitempty"`
	AfterAvgScore        *float64 `json:"after_avg_score,omitempty"`
	ImprovementConfirmed *bool    `json:"improvement_confirmed,omitempty"`
}

type UserProfile struct {
	ID                int64    `json:"id"`
	CurrentSituation  string   `json:"current_situation"`
	CurrentChallenges []string `json:"current_challenges"`
	CurrentGoals      []string `json:"current_goals"`
	UpdatedAt         string   `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
