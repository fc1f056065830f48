package engine

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"orchboard/internal/config"
	"orchboard/internal/domain"
	"orchboard/internal/events"
	"orchboard/internal/metrics"
	"orchboard/internal/repo"
)

// Store is the persistence surface the engine reads and writes through.
// repo.Repo satisfies it.
type Store interface {
	InsertProject(ctx context.Context, p domain.Project) error
	GetProject(ctx context.Context, id string) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	UpdateProject(ctx context.Context, id string, u repo.ProjectUpdate) error

	InsertTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	UpdateTaskStatus(ctx context.Context, id int64, status string, completedAt, note *string) error
	ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error)
	CountTasksWithStatus(ctx context.Context, status string) (int, error)
	CountTasksByStatus(ctx context.Context, projectID string) (map[string]int, error)

	InsertRun(ctx context.Context, run domain.Run) (domain.Run, error)
	GetRun(ctx context.Context, id int64) (domain.Run, error)
	UpdateRun(ctx context.Context, run domain.Run) error
	ListRunningRuns(ctx context.Context) ([]domain.RunningRun, error)

	InsertEvaluation(ctx context.Context, ev domain.Evaluation) (domain.Evaluation, error)
	ListEvaluations(ctx context.Context, f repo.EvaluationFilters) ([]domain.EvaluationWithRun, error)
	ListEvaluationsSince(ctx context.Context, f repo.WindowFilter) ([]domain.Evaluation, error)
	ListFailedEvaluationsSince(ctx context.Context, f repo.WindowFilter) ([]domain.Evaluation, error)
	InsertToolCall(ctx context.Context, tc domain.ToolCall) (domain.ToolCall, error)
	ListToolCallsSince(ctx context.Context, f repo.WindowFilter) ([]domain.ToolCall, error)

	InsertSuggestion(ctx context.Context, s domain.Suggestion) (domain.Suggestion, error)
	ListCandidateSuggestions(ctx context.Context, projectID string) ([]domain.Suggestion, error)
	ListSuggestionsByIDs(ctx context.Context, ids []int64) ([]domain.Suggestion, error)
	MarkSuggestionsSelected(ctx context.Context, ids []int64) (int64, error)
	DeleteSuggestion(ctx context.Context, id int64) error

	InsertImprovement(ctx context.Context, imp domain.Improvement) (domain.Improvement, error)
	ListImprovements(ctx context.Context, f repo.ImprovementFilters) ([]domain.Improvement, error)

	GetUserProfile(ctx context.Context) (domain.UserProfile, error)
	SaveUserProfile(ctx context.Context, p domain.UserProfile) (domain.UserProfile, error)

	InsertAPIKey(ctx context.Context, key domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error

	ListEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error)
}

type Engine struct {
	DB      *sql.DB
	Store   Store
	Events  events.Writer
	Config  *config.Config
	Metrics *metrics.Metrics
	Logger  *log.Logger
	Now     func() time.Time

	validate *validator.Validate
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:       db,
		Store:    repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Logger:   log.Default(),
		Now:      time.Now,
		validate: newValidator(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e Engine) warnf(format string, args ...any) {
	e.logger().Printf("WARNING: "+format, args...)
}

// appendEvent records an audit event. Failures are logged and never fail the
// operation that produced the event.
func (e Engine) appendEvent(ctx context.Context, evtType, projectID, entityKind, entityID, actorID string, payload events.EventPayload) {
	if e.Events.DB == nil {
		return
	}
	w := e.Events
	w.Now = e.now
	if err := w.Append(ctx, nil, evtType, projectID, entityKind, entityID, actorOrDefault(actorID), payload); err != nil {
		e.warnf("append %s event: %v", evtType, err)
	}
}

func actorOrDefault(actorID string) string {
	if strings.TrimSpace(actorID) == "" {
		return "user"
	}
	return actorID
}

func (e Engine) maxConcurrent() int {
	if e.Config != nil && e.Config.Runs.MaxConcurrent > 0 {
		return e.Config.Runs.MaxConcurrent
	}
	return 3
}

func (e Engine) defaultDays() int {
	if e.Config != nil && e.Config.Analytics.DefaultDays > 0 {
		return e.Config.Analytics.DefaultDays
	}
	return 30
}
