package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of one compatibility run.
type Metrics struct {
	// Plugin pipeline metrics
	PluginResults  *prometheus.CounterVec
	PluginDuration *prometheus.HistogramVec

	// Result cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Hook pipeline metrics
	HookRuns     *prometheus.CounterVec
	HookDuration *prometheus.HistogramVec

	// Build tool metrics
	BuildInvocations *prometheus.CounterVec
	BuildDuration    *prometheus.HistogramVec
	TestCases        *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		PluginResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pct_plugin_results_total",
				Help: "Plugin results by terminal status",
			},
			[]string{"status", "cached"},
		),
		PluginDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pct_plugin_duration_seconds",
				Help:    "Time spent testing one plugin, cache hits excluded",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 2400, 3600},
			},
			[]string{"status"},
		),

		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pct_cache_hits_total",
				Help: "Plugins skipped because a fresh cached result existed",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pct_cache_misses_total",
				Help: "Plugins tested because no fresh cached result existed",
			},
		),

		HookRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pct_hook_runs_total",
				Help: "Hook invocations by stage and outcome",
			},
			[]string{"stage", "hook", "outcome"},
		),
		HookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pct_hook_duration_seconds",
				Help:    "Hook action duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"stage"},
		),

		BuildInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pct_build_invocations_total",
				Help: "Build tool invocations by phase",
			},
			[]string{"phase", "success"},
		),
		BuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pct_build_duration_seconds",
				Help:    "Build tool invocation duration in seconds",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
			},
			[]string{"phase"},
		),
		TestCases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pct_test_cases_total",
				Help: "Test cases reported by the build, by outcome",
			},
			[]string{"outcome"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pct_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// RecordPlugin counts a plugin result. Cached results carry no duration.
func (m *Metrics) RecordPlugin(status string, cached bool, d time.Duration) {
	m.PluginResults.WithLabelValues(status, strconv.FormatBool(cached)).Inc()
	if cached {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
	m.PluginDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordHook counts one hook decision. outcome is one of "excluded",
// "skipped", "ok" or "failed".
func (m *Metrics) RecordHook(stage, hook, outcome string, d time.Duration) {
	m.HookRuns.WithLabelValues(stage, hook, outcome).Inc()
	if outcome == "ok" || outcome == "failed" {
		m.HookDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// RecordBuild counts a build tool invocation for phase ("compile" or "test").
func (m *Metrics) RecordBuild(phase string, success bool, d time.Duration) {
	m.BuildInvocations.WithLabelValues(phase, strconv.FormatBool(success)).Inc()
	m.BuildDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordTests counts executed and failed test cases.
func (m *Metrics) RecordTests(executed, failed int) {
	m.TestCases.WithLabelValues("executed").Add(float64(executed))
	m.TestCases.WithLabelValues("failed").Add(float64(failed))
}

// RecordError counts a coded error raised in component.
func (m *Metrics) RecordError(code, component string) {
	if code == "" {
		code = "uncoded"
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
