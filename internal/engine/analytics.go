package engine

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"orchboard/internal/domain"
	"orchboard/internal/repo"
)

const (
	SegmentScoreTrend        = "score_trend"
	SegmentFailureCategories = "failure_categories"
	SegmentToolUsage         = "tool_usage"
)

// MaxAnalyticsDays bounds the trailing window.
const MaxAnalyticsDays = 36500

type AnalyticsQuery struct {
	Days      int    `json:"days" validate:"gte=0,lte=36500"`
	ProjectID string `json:"project_id"`
}

type ScorePoint struct {
	Date         string  `json:"date"`
	AverageScore float64 `json:"average_score"`
}

type FailureCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type ToolUsage struct {
	Tool        string  `json:"tool"`
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type Analytics struct {
	ScoreTrend        []ScorePoint   `json:"score_trend"`
	FailureCategories []FailureCount `json:"failure_categories"`
	ToolUsage         []ToolUsage    `json:"tool_usage"`
	// Degraded lists the segments whose data could not be read. Those
	// segments are empty.
	Degraded   []string `json:"degraded"`
	WindowDays int      `json:"window_days"`
	Since      string   `json:"since" format:"date-time"`
}

// Analytics computes the score trend, failure categories and tool usage over
// the trailing window. Each segment is read independently; a segment whose
// read fails is returned empty and named in Degraded. Only invalid input
// fails the call.
func (e Engine) Analytics(ctx context.Context, q AnalyticsQuery) (Analytics, error) {
	if err := e.check(q); err != nil {
		return Analytics{}, err
	}
	if q.Days == 0 {
		q.Days = e.defaultDays()
	}
	since := e.now().UTC().AddDate(0, 0, -q.Days).Format(time.RFC3339)
	filter := repo.WindowFilter{Since: since, ProjectID: q.ProjectID}

	out := Analytics{
		ScoreTrend:        []ScorePoint{},
		FailureCategories: []FailureCount{},
		ToolUsage:         []ToolUsage{},
		Degraded:          []string{},
		WindowDays:        q.Days,
		Since:             since,
	}
	var scoreErr, failureErr, toolErr error
	var g errgroup.Group
	g.Go(func() error {
		evals, err := e.Store.ListEvaluationsSince(ctx, filter)
		if err != nil {
			scoreErr = err
			return nil
		}
		out.ScoreTrend = ScoreTrend(evals)
		return nil
	})
	g.Go(func() error {
		evals, err := e.Store.ListFailedEvaluationsSince(ctx, filter)
		if err != nil {
			failureErr = err
			return nil
		}
		out.FailureCategories = FailureCategories(evals)
		return nil
	})
	g.Go(func() error {
		calls, err := e.Store.ListToolCallsSince(ctx, filter)
		if err != nil {
			toolErr = err
			return nil
		}
		out.ToolUsage = ToolUsageByTool(calls)
		return nil
	})
	// Each segment keeps its own error so a failed read degrades only that segment.
	_ = g.Wait()

	for _, seg := range []struct {
		name string
		err  error
	}{
		{SegmentScoreTrend, scoreErr},
		{SegmentFailureCategories, failureErr},
		{SegmentToolUsage, toolErr},
	} {
		if seg.err == nil {
			continue
		}
		e.warnf("analytics segment %s degraded: %v", seg.name, seg.err)
		e.Metrics.SegmentDegraded(seg.name)
		out.Degraded = append(out.Degraded, seg.name)
	}
	return out, nil
}

// ScoreTrend averages overall_score per calendar date of evaluated_at,
// rounded to two decimals, oldest date first. Dates without evaluations do
// not appear.
func ScoreTrend(evals []domain.Evaluation) []ScorePoint {
	type acc struct {
		sum float64
		n   int
	}
	byDate := map[string]*acc{}
	for _, ev := range evals {
		d := datePart(ev.EvaluatedAt)
		a, ok := byDate[d]
		if !ok {
			a = &acc{}
			byDate[d] = a
		}
		a.sum += ev.OverallScore
		a.n++
	}
	out := make([]ScorePoint, 0, len(byDate))
	for d, a := range byDate {
		out = append(out, ScorePoint{Date: d, AverageScore: roundTo(a.sum/float64(a.n), 2)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// FailureCategories counts evaluations per non-empty failure category, most
// frequent first.
func FailureCategories(evals []domain.Evaluation) []FailureCount {
	counts := map[string]int{}
	for _, ev := range evals {
		if ev.FailureCategory == nil || strings.TrimSpace(*ev.FailureCategory) == "" {
			continue
		}
		counts[*ev.FailureCategory]++
	}
	out := make([]FailureCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, FailureCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ToolUsageByTool tallies calls per tool. success_rate is a percentage
// rounded to one decimal.
func ToolUsageByTool(calls []domain.ToolCall) []ToolUsage {
	byTool := map[string]*ToolUsage{}
	for _, c := range calls {
		u, ok := byTool[c.ToolName]
		if !ok {
			u = &ToolUsage{Tool: c.ToolName}
			byTool[c.ToolName] = u
		}
		u.Total++
		if c.Success {
			u.Success++
		}
	}
	out := make([]ToolUsage, 0, len(byTool))
	for _, u := range byTool {
		u.Failed = u.Total - u.Success
		u.SuccessRate = successRate(u.Success, u.Total)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}

func successRate(success, total int) float64 {
	if total == 0 {
		return 0
	}
	return roundTo(float64(success)/float64(total)*100, 1)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// datePart truncates a stored timestamp to its YYYY-MM-DD prefix.
func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
