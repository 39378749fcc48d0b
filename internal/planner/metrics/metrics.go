// Package metrics holds the Prometheus collectors of the planner server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the planner server.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// MCP metrics
	ToolCallsTotal *prometheus.CounterVec

	// Engine metrics
	DecisionsTotal     *prometheus.CounterVec
	PlanRunsTotal      prometheus.Counter
	PlanDuration       prometheus.Histogram
	PlanLocations      prometheus.Histogram
	StatusChangesTotal *prometheus.CounterVec
	TaskTogglesTotal   *prometheus.CounterVec

	// State metrics
	StateWritesTotal *prometheus.CounterVec
}

// New registers every collector with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planner_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "planner_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_mcp_tool_calls_total",
				Help: "Total number of MCP tool calls",
			},
			[]string{"tool", "status"},
		),

		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_decisions_total",
				Help: "Total number of keep/discard decisions by verdict",
			},
			[]string{"verdict"},
		),
		PlanRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_farming_plan_runs_total",
				Help: "Total number of farming plan computations",
			},
		),
		PlanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "planner_farming_plan_duration_seconds",
				Help:    "Duration of farming plan computations in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
		),
		PlanLocations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "planner_farming_plan_locations",
				Help:    "Number of locations in computed farming plans",
				Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
			},
		),
		StatusChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_item_status_changes_total",
				Help: "Total number of item status changes by action",
			},
			[]string{"action"},
		),
		TaskTogglesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_task_toggles_total",
				Help: "Total number of task checklist changes by kind",
			},
			[]string{"kind"},
		),

		StateWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_state_writes_total",
				Help: "Total number of persisted state writes",
			},
			[]string{"key", "status"},
		),
	}
}
