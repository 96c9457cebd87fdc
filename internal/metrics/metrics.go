// Package metrics defines the Prometheus instruments for the capture pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tribunal"

// Metrics holds the capture pipeline instruments. All methods are safe on a
// nil receiver so components can run without instrumentation in tests.
type Metrics struct {
	registry *prometheus.Registry

	captureRuns      *prometheus.CounterVec
	captureDuration  *prometheus.HistogramVec
	capturedItems    *prometheus.CounterVec
	itemErrors       *prometheus.CounterVec
	retries          *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
	breakerChanges   *prometheus.CounterVec
	guardRejections  *prometheus.CounterVec
	schedulerRunning prometheus.Gauge
	schedulerSkipped *prometheus.CounterVec
	gaps             *prometheus.CounterVec
	cacheEvictions   *prometheus.CounterVec
}

// New creates a registry with Go runtime and process collectors plus the
// capture pipeline instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		captureRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_runs_total",
			Help:      "Capture runs by type, tribunal, trigger, and final status.",
		}, []string{"capture_type", "tribunal", "trigger", "status"}),
		captureDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Wall time of capture runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"capture_type", "tribunal"}),
		capturedItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captured_items_total",
			Help:      "Normalized records persisted by capture type.",
		}, []string{"capture_type", "tribunal"}),
		itemErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_item_errors_total",
			Help:      "Per-item capture failures that did not fail the run.",
		}, []string{"capture_type", "kind"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Retried operations by call site.",
		}, []string{"operation"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Breaker state per tribunal (0 closed, 1 half-open, 2 open).",
		}, []string{"tribunal"}),
		breakerChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Breaker state transitions per tribunal.",
		}, []string{"tribunal", "from", "to"}),
		guardRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_rejections_total",
			Help:      "Portal requests rejected by the breaker.",
		}, []string{"tribunal"}),
		schedulerRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running_captures",
			Help:      "Capture runs currently executing.",
		}),
		schedulerSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_skipped_total",
			Help:      "Due schedules skipped by a tick.",
		}, []string{"reason"}),
		gaps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_gaps_total",
			Help:      "Gaps reported by recovery analysis.",
		}, []string{"capture_type", "kind"}),
		cacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Cache invalidation calls by domain and outcome.",
		}, []string{"domain", "outcome"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CaptureFinished records the outcome and duration of a capture run.
func (m *Metrics) CaptureFinished(captureType, tribunal, trigger, status string, persisted int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.captureRuns.WithLabelValues(captureType, tribunal, trigger, status).Inc()
	m.captureDuration.WithLabelValues(captureType, tribunal).Observe(elapsed.Seconds())
	if persisted > 0 {
		m.capturedItems.WithLabelValues(captureType, tribunal).Add(float64(persisted))
	}
}

// ItemError records a non-fatal per-item failure.
func (m *Metrics) ItemError(captureType, kind string) {
	if m == nil {
		return
	}
	m.itemErrors.WithLabelValues(captureType, kind).Inc()
}

// Retry records one retry of an operation.
func (m *Metrics) Retry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

// BreakerTransition records a breaker state change. States are the
// gobreaker string forms: "closed", "half-open", "open".
func (m *Metrics) BreakerTransition(tribunal, from, to string) {
	if m == nil {
		return
	}
	m.breakerChanges.WithLabelValues(tribunal, from, to).Inc()
	m.breakerState.WithLabelValues(tribunal).Set(stateValue(to))
}

// GuardRejected records a request refused by an open breaker.
func (m *Metrics) GuardRejected(tribunal string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(tribunal).Inc()
}

// RunStarted and RunDone track in-flight captures.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.schedulerRunning.Inc()
}

func (m *Metrics) RunDone() {
	if m == nil {
		return
	}
	m.schedulerRunning.Dec()
}

// ScheduleSkipped records a due schedule a tick did not start.
func (m *Metrics) ScheduleSkipped(reason string) {
	if m == nil {
		return
	}
	m.schedulerSkipped.WithLabelValues(reason).Inc()
}

// Gap records one gap found by recovery analysis.
func (m *Metrics) Gap(captureType, kind string) {
	if m == nil {
		return
	}
	m.gaps.WithLabelValues(captureType, kind).Inc()
}

// CacheInvalidated records a cache invalidation outcome ("ok" or "error").
func (m *Metrics) CacheInvalidated(domain, outcome string) {
	if m == nil {
		return
	}
	m.cacheEvictions.WithLabelValues(domain, outcome).Inc()
}

func stateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	}
	return 0
}
