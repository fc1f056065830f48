package engine_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchboard/internal/domain"
	"orchboard/internal/repo"
)

func suggestionIDs(list []domain.Suggestion) []int64 {
	ids := make([]int64, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestPromoteSuggestionsCreatesPendingTasks(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	fix := env.suggestion(t, "p1", "Fix bug")
	add := env.suggestion(t, "p1", "Add test")
	keep := env.suggestion(t, "p1", "Later")

	res, err := env.Engine.PromoteSuggestions(env.Ctx, []int64{fix.ID, add.ID}, "operator")
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.Len(t, res.Tasks, 2)
	assert.Empty(t, res.MarkError)

	titles := []string{res.Tasks[0].Title, res.Tasks[1].Title}
	assert.ElementsMatch(t, []string{"Fix bug", "Add test"}, titles)
	for _, task := range res.Tasks {
		assert.NotZero(t, task.ID)
		assert.Equal(t, "p1", task.ProjectID)
		assert.Equal(t, domain.TaskPending, task.Status)
		assert.Equal(t, domain.DefaultTaskPriority, task.Priority)
	}

	remaining, err := env.Engine.ListSuggestions(env.Ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{keep.ID}, suggestionIDs(remaining))

	pending, err := env.Repo.CountTasksWithStatus(env.Ctx, domain.TaskPending)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
	assert.Equal(t, float64(2), testutil.ToFloat64(env.Engine.Metrics.TasksPromoted))

	evts, err := env.Repo.ListEvents(env.Ctx, repo.EventFilters{Type: "suggestions.promoted"})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "operator", evts[0].ActorID)
}

func TestPromoteSuggestionsRejectsEmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.PromoteSuggestions(env.Ctx, nil, "")
	requireValidation(t, err, "suggestion_ids")
	_, err = env.Engine.PromoteSuggestions(env.Ctx, []int64{}, "")
	requireValidation(t, err, "suggestion_ids")
}

func TestPromoteSuggestionsUnknownIDs(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	_, err := env.Engine.PromoteSuggestions(env.Ctx, []int64{404, 405}, "")
	require.ErrorIs(t, err, repo.ErrNotFound)

	tasks, err := env.Repo.ListTasks(env.Ctx, repo.TaskFilters{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestPromoteSuggestionsPartialResolution(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	s := env.suggestion(t, "p1", "Only one")

	res, err := env.Engine.PromoteSuggestions(env.Ctx, []int64{s.ID, 999}, "")
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "Only one", res.Tasks[0].Title)

	got, err := env.Repo.ListSuggestionsByIDs(env.Ctx, []int64{s.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsSelected)
}

func TestPromoteSuggestionsDoesNotDeduplicate(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	s := env.suggestion(t, "p1", "Twice")

	_, err := env.Engine.PromoteSuggestions(env.Ctx, []int64{s.ID}, "")
	require.NoError(t, err)
	res, err := env.Engine.PromoteSuggestions(env.Ctx, []int64{s.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	tasks, err := env.Repo.ListTasks(env.Ctx, repo.TaskFilters{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestPromoteSuggestionsInsertFailureMarksNothing(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	a := env.suggestion(t, "p1", "A")
	b := env.suggestion(t, "p1", "B")
	env.Engine.Store = faultStore{Repo: env.Repo, insertTasks: errInjected}

	res, err := env.Engine.PromoteSuggestions(env.Ctx, []int64{a.ID, b.ID}, "")
	requireStoreError(t, err, true)
	assert.Zero(t, res.Count)

	got, err := env.Repo.ListSuggestionsByIDs(env.Ctx, []int64{a.ID, b.ID})
	require.NoError(t, err)
	for _, s := range got {
		assert.False(t, s.IsSelected, "suggestion %d marked after failed insert", s.ID)
	}
	tasks, err := env.Repo.ListTasks(env.Ctx, repo.TaskFilters{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestPromoteSuggestionsFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Store = faultStore{Repo: env.Repo, fetchByIDs: errInjected}
	_, err := env.Engine.PromoteSuggestions(env.Ctx, []int64{1}, "")
	requireStoreError(t, err, false)
}

func TestPromoteSuggestionsMarkFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	a := env.suggestion(t, "p1", "A")
	b := env.suggestion(t, "p1", "B")
	env.Engine.Store = faultStore{Repo: env.Repo, markSelected: errInjected}

	res, err := env.Engine.PromoteSuggestions(env.Ctx, []int64{a.ID, b.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Len(t, res.Tasks, 2)
	assert.Contains(t, res.MarkError, errInjected.Error())
	assert.Contains(t, env.Log.String(), "WARNING: promoted 2 suggestions but could not mark them selected")
	assert.Equal(t, float64(1), testutil.ToFloat64(env.Engine.Metrics.PromotionMarkFailures))

	// the suggestions resurface as candidates but the tasks stay
	remaining, err := env.Engine.ListSuggestions(env.Ctx, "p1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, suggestionIDs(remaining))
	tasks, err := env.Repo.ListTasks(env.Ctx, repo.TaskFilters{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}
