package engine_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orchboard/internal/config"
	"orchboard/internal/db"
	"orchboard/internal/domain"
	"orchboard/internal/engine"
	"orchboard/internal/metrics"
	"orchboard/internal/migrate"
	"orchboard/internal/repo"
)

var baseTime = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	Engine engine.Engine
	Repo   repo.Repo
	Ctx    context.Context
	Log    *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var buf bytes.Buffer
	eng := engine.New(conn, config.Default())
	eng.Logger = log.New(&buf, "", 0)
	eng.Metrics = metrics.New()
	env := &testEnv{Engine: eng, Repo: repo.Repo{DB: conn}, Ctx: context.Background(), Log: &buf}
	env.at(baseTime)
	return env
}

// at pins the engine clock.
func (env *testEnv) at(ts time.Time) {
	env.Engine.Now = func() time.Time { return ts }
}

func (env *testEnv) project(t *testing.T, id string) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{ID: id, Name: id + " name", Description: "test project"})
	if err != nil {
		t.Fatalf("create project %s: %v", id, err)
	}
	return p
}

func (env *testEnv) suggestion(t *testing.T, projectID, title string) domain.Suggestion {
	t.Helper()
	s, err := env.Engine.CreateSuggestion(env.Ctx, engine.SuggestionCreateOptions{ProjectID: projectID, Title: title})
	if err != nil {
		t.Fatalf("create suggestion %q: %v", title, err)
	}
	return s
}

// faultStore fails selected calls and delegates the rest to the real repo.
type faultStore struct {
	repo.Repo
	listRunning  error
	countPending error
	fetchByIDs   error
	insertTasks  error
	markSelected error
	evaluations  error
	failures     error
	toolCalls    error
}

var errInjected = errors.New("injected store failure")

func (f faultStore) ListRunningRuns(ctx context.Context) ([]domain.RunningRun, error) {
	if f.listRunning != nil {
		return nil, f.listRunning
	}
	return f.Repo.ListRunningRuns(ctx)
}

func (f faultStore) CountTasksWithStatus(ctx context.Context, status string) (int, error) {
	if f.countPending != nil {
		return 0, f.countPending
	}
	return f.Repo.CountTasksWithStatus(ctx, status)
}

func (f faultStore) ListSuggestionsByIDs(ctx context.Context, ids []int64) ([]domain.Suggestion, error) {
	if f.fetchByIDs != nil {
		return nil, f.fetchByIDs
	}
	return f.Repo.ListSuggestionsByIDs(ctx, ids)
}

func (f faultStore) InsertTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	if f.insertTasks != nil {
		return nil, f.insertTasks
	}
	return f.Repo.InsertTasks(ctx, tasks)
}

func (f faultStore) MarkSuggestionsSelected(ctx context.Context, ids []int64) (int64, error) {
	if f.markSelected != nil {
		return 0, f.markSelected
	}
	return f.Repo.MarkSuggestionsSelected(ctx, ids)
}

func (f faultStore) ListEvaluationsSince(ctx context.Context, w repo.WindowFilter) ([]domain.Evaluation, error) {
	if f.evaluations != nil {
		return nil, f.evaluations
	}
	return f.Repo.ListEvaluationsSince(ctx, w)
}

func (f faultStore) ListFailedEvaluationsSince(ctx context.Context, w repo.WindowFilter) ([]domain.Evaluation, error) {
	if f.failures != nil {
		return nil, f.failures
	}
	return f.Repo.ListFailedEvaluationsSince(ctx, w)
}

func (f faultStore) ListToolCallsSince(ctx context.Context, w repo.WindowFilter) ([]domain.ToolCall, error) {
	if f.toolCalls != nil {
		return nil, f.toolCalls
	}
	return f.Repo.ListToolCallsSince(ctx, w)
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *engine.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, field, ve.Field)
}

func requireStoreError(t *testing.T, err error, write bool) {
	t.Helper()
	var se *engine.StoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, write, se.Write)
	require.ErrorIs(t, err, errInjected)
}
