package engine_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchboard/internal/domain"
	"orchboard/internal/engine"
)

func strPtr(s string) *string { return &s }

func TestScoreTrendGroupsByDate(t *testing.T) {
	evals := []domain.Evaluation{
		{OverallScore: 9, EvaluatedAt: "2024-01-02T08:00:00Z"},
		{OverallScore: 8, EvaluatedAt: "2024-01-01T09:00:00Z"},
		{OverallScore: 6, EvaluatedAt: "2024-01-01T23:59:59Z"},
	}
	assert.Equal(t, []engine.ScorePoint{
		{Date: "2024-01-01", AverageScore: 7.00},
		{Date: "2024-01-02", AverageScore: 9.00},
	}, engine.ScoreTrend(evals))
}

func TestScoreTrendRoundsToTwoDecimals(t *testing.T) {
	evals := []domain.Evaluation{
		{OverallScore: 7, EvaluatedAt: "2024-01-05T01:00:00Z"},
		{OverallScore: 8, EvaluatedAt: "2024-01-05T02:00:00Z"},
		{OverallScore: 8, EvaluatedAt: "2024-01-05T03:00:00Z"},
		{OverallScore: 5, EvaluatedAt: "2024-01-07T03:00:00Z"},
	}
	trend := engine.ScoreTrend(evals)
	require.Len(t, trend, 2)
	assert.Equal(t, 7.67, trend[0].AverageScore)
	// 2024-01-06 has no evaluations and is omitted
	assert.Equal(t, "2024-01-07", trend[1].Date)
	assert.Empty(t, engine.ScoreTrend(nil))
}

func TestFailureCategoriesCounts(t *testing.T) {
	evals := []domain.Evaluation{
		{FailureCategory: strPtr("timeout")},
		{FailureCategory: strPtr("tests")},
		{FailureCategory: strPtr("timeout")},
		{FailureCategory: strPtr("")},
		{},
	}
	assert.Equal(t, []engine.FailureCount{
		{Category: "timeout", Count: 2},
		{Category: "tests", Count: 1},
	}, engine.FailureCategories(evals))
}

func TestToolUsageByTool(t *testing.T) {
	var calls []domain.ToolCall
	for i := 0; i < 7; i++ {
		calls = append(calls, domain.ToolCall{ToolName: "search", Success: i < 5})
	}
	calls = append(calls,
		domain.ToolCall{ToolName: "edit", Success: true},
		domain.ToolCall{ToolName: "edit", Success: true},
		domain.ToolCall{ToolName: "bash", Success: false},
	)
	usage := engine.ToolUsageByTool(calls)
	assert.Equal(t, []engine.ToolUsage{
		{Tool: "bash", Total: 1, Success: 0, Failed: 1, SuccessRate: 0},
		{Tool: "edit", Total: 2, Success: 2, Failed: 0, SuccessRate: 100},
		{Tool: "search", Total: 7, Success: 5, Failed: 2, SuccessRate: 71.4},
	}, usage)
	for _, u := range usage {
		assert.Equal(t, u.Total, u.Success+u.Failed, u.Tool)
	}
}

// seedRun starts and completes a run, then records evaluations and tool calls
// on it at the given time.
func (env *testEnv) seedRun(t *testing.T, projectID string, at time.Time) domain.Run {
	t.Helper()
	env.at(at)
	run, err := env.Engine.StartRun(env.Ctx, engine.RunStartOptions{ProjectID: projectID, Instruction: "work"})
	require.NoError(t, err)
	run, err = env.Engine.FinishRun(env.Ctx, engine.RunFinishOptions{ID: run.ID, Status: "completed"})
	require.NoError(t, err)
	return run
}

func (env *testEnv) evaluate(t *testing.T, runID int64, at time.Time, score float64, category string) {
	t.Helper()
	env.at(at)
	_, err := env.Engine.RecordEvaluation(env.Ctx, engine.EvaluationOptions{RunID: runID, OverallScore: score, FailureCategory: category})
	require.NoError(t, err)
}

func (env *testEnv) toolCall(t *testing.T, runID int64, at time.Time, tool string, ok bool) {
	t.Helper()
	env.at(at)
	_, err := env.Engine.RecordToolCall(env.Ctx, engine.ToolCallOptions{RunID: runID, ToolName: tool, Success: ok})
	require.NoError(t, err)
}

func TestAnalyticsWindowAndProjectFilter(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	env.project(t, "p2")
	jan1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	jan2 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	old := baseTime.AddDate(0, 0, -40)

	r1 := env.seedRun(t, "p1", jan1)
	env.evaluate(t, r1.ID, jan1, 8, "")
	env.evaluate(t, r1.ID, jan1.Add(time.Hour), 6, "timeout")
	env.evaluate(t, r1.ID, jan2, 9, "")
	for i := 0; i < 7; i++ {
		env.toolCall(t, r1.ID, jan2, "search", i < 5)
	}
	r2 := env.seedRun(t, "p2", jan2)
	env.evaluate(t, r2.ID, jan2, 2, "tests")
	env.toolCall(t, r2.ID, jan2, "bash", false)
	rOld := env.seedRun(t, "p1", old)
	env.evaluate(t, rOld.ID, old, 1, "ancient")
	env.toolCall(t, rOld.ID, old, "search", false)

	env.at(baseTime)
	got, err := env.Engine.Analytics(env.Ctx, engine.AnalyticsQuery{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 30, got.WindowDays)
	assert.Equal(t, "2023-12-11T12:00:00Z", got.Since)
	assert.Empty(t, got.Degraded)
	assert.Equal(t, []engine.ScorePoint{
		{Date: "2024-01-01", AverageScore: 7},
		{Date: "2024-01-02", AverageScore: 9},
	}, got.ScoreTrend)
	assert.Equal(t, []engine.FailureCount{{Category: "timeout", Count: 1}}, got.FailureCategories)
	assert.Equal(t, []engine.ToolUsage{{Tool: "search", Total: 7, Success: 5, Failed: 2, SuccessRate: 71.4}}, got.ToolUsage)

	all, err := env.Engine.Analytics(env.Ctx, engine.AnalyticsQuery{Days: 60})
	require.NoError(t, err)
	assert.Len(t, all.ScoreTrend, 3)
	assert.Len(t, all.FailureCategories, 3)
	assert.Len(t, all.ToolUsage, 2)
}

func TestAnalyticsRejectsNegativeDays(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Analytics(env.Ctx, engine.AnalyticsQuery{Days: -1})
	requireValidation(t, err, "days")
}

func TestAnalyticsLongWindows(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	jan1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	run := env.seedRun(t, "p1", jan1)
	env.evaluate(t, run.ID, jan1, 8, "")
	env.at(baseTime)

	for _, days := range []int{60, 3650, engine.MaxAnalyticsDays} {
		got, err := env.Engine.Analytics(env.Ctx, engine.AnalyticsQuery{Days: days})
		require.NoError(t, err, "days=%d", days)
		since, err := time.Parse(time.RFC3339, got.Since)
		require.NoError(t, err)
		assert.True(t, since.Before(baseTime), "days=%d since=%s", days, got.Since)
		assert.Equal(t, []engine.ScorePoint{{Date: "2024-01-01", AverageScore: 8}}, got.ScoreTrend, "days=%d", days)
	}

	for _, days := range []int{engine.MaxAnalyticsDays + 1, 106752, 200000} {
		_, err := env.Engine.Analytics(env.Ctx, engine.AnalyticsQuery{Days: days})
		requireValidation(t, err, "days")
	}
}

func TestAnalyticsSegmentsDegradeIndependently(t *testing.T) {
	env := newTestEnv(t)
	env.project(t, "p1")
	day := baseTime.AddDate(0, 0, -1)
	run := env.seedRun(t, "p1", day)
	env.evaluate(t, run.ID, day, 4, "lint")
	env.toolCall(t, run.ID, day, "edit", true)
	env.at(baseTime)

	env.Engine.Store = faultStore{Repo: env.Repo, toolCalls: errInjected}
	got, err := env.Engine.Analytics(env.Ctx, engine.AnalyticsQuery{Days: 7})
	require.NoError(t, err)
	assert.Equal(t, []string{engine.SegmentToolUsage}, got.Degraded)
	assert.Empty(t, got.ToolUsage)
	assert.NotNil(t, got.ToolUsage)
	assert.Len(t, got.ScoreTrend, 1)
	assert.Len(t, got.FailureCategories, 1)
	assert.Contains(t, env.Log.String(), "analytics segment tool_usage degraded")

	env.Engine.Store = faultStore{Repo: env.Repo, evaluations: errInjected, failures: errInjected, toolCalls: errInjected}
	got, err = env.Engine.Analytics(env.Ctx, engine.AnalyticsQuery{Days: 7})
	require.NoError(t, err)
	assert.Equal(t, []string{engine.SegmentScoreTrend, engine.SegmentFailureCategories, engine.SegmentToolUsage}, got.Degraded)
	assert.Empty(t, got.ScoreTrend)
	assert.Empty(t, got.FailureCategories)
	assert.Equal(t, float64(2), testutil.ToFloat64(env.Engine.Metrics.AnalyticsDegraded.WithLabelValues(engine.SegmentToolUsage)))
}
