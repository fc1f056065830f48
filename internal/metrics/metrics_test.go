package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCapacity(1, 2, 3)
	m.Promoted(2, true)
	m.SegmentDegraded("tool_usage")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestCollectors(t *testing.T) {
	m := New()
	m.ObserveCapacity(2, 5, 3)
	m.Promoted(3, false)
	m.Promoted(1, true)
	m.SegmentDegraded("score_trend")

	if got := testutil.ToFloat64(m.RunsActive); got != 2 {
		t.Fatalf("runs_active = %v", got)
	}
	if got := testutil.ToFloat64(m.TasksPending); got != 5 {
		t.Fatalf("tasks_pending = %v", got)
	}
	if got := testutil.ToFloat64(m.TasksPromoted); got != 4 {
		t.Fatalf("tasks_promoted_total = %v", got)
	}
	if got := testutil.ToFloat64(m.PromotionMarkFailures); got != 1 {
		t.Fatalf("promotion_mark_failures_total = %v", got)
	}
	if got := testutil.ToFloat64(m.AnalyticsDegraded.WithLabelValues("score_trend")); got != 1 {
		t.Fatalf("analytics_degraded_total = %v", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "orchboard_run_capacity 3") {
		t.Fatalf("exposition missing run capacity:\n%s", body)
	}
}
