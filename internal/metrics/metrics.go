package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RunsActive            prometheus.Gauge
	TasksPending          prometheus.Gauge
	RunCapacity           prometheus.Gauge
	TasksPromoted         prometheus.Counter
	PromotionMarkFailures prometheus.Counter
	AnalyticsDegraded     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orchboard",
			Name:      "runs_active",
			Help:      "Runs currently in the running state.",
		}),
		TasksPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orchboard",
			Name:      "tasks_pending",
			Help:      "Tasks waiting to be picked up.",
		}),
		RunCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orchboard",
			Name:      "run_capacity",
			Help:      "Configured ceiling on simultaneously running runs.",
		}),
		TasksPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orchboard",
			Name:      "tasks_promoted_total",
			Help:      "Tasks created from promoted suggestions.",
		}),
		PromotionMarkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orchboard",
			Name:      "promotion_mark_failures_total",
			Help:      "Promotions whose tasks were created but whose suggestions could not be marked selected.",
		}),
		AnalyticsDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchboard",
			Name:      "analytics_degraded_total",
			Help:      "Analytics segments that failed and were returned empty.",
		}, []string{"segment"}),
	}
	m.registry.MustRegister(
		m.RunsActive,
		m.TasksPending,
		m.RunCapacity,
		m.TasksPromoted,
		m.PromotionMarkFailures,
		m.AnalyticsDegraded,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCapacity(running, pending, ceiling int) {
	if m == nil {
		return
	}
	m.RunsActive.Set(float64(running))
	m.TasksPending.Set(float64(pending))
	m.RunCapacity.Set(float64(ceiling))
}

func (m *Metrics) Promoted(created int, markFailed bool) {
	if m == nil {
		return
	}
	m.TasksPromoted.Add(float64(created))
	if markFailed {
		m.PromotionMarkFailures.Inc()
	}
}

func (m *Metrics) SegmentDegraded(segment string) {
	if m == nil {
		return
	}
	m.AnalyticsDegraded.WithLabelValues(segment).Inc()
}
