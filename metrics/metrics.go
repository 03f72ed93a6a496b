// Package metrics provides Prometheus metrics for dashboard data access.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is a valid no-op.
type Metrics struct {
	enabled bool

	// Credential resolution
	authResolutionsTotal *prometheus.CounterVec

	// Session validation
	sessionValidationsTotal *prometheus.CounterVec

	// Report generation
	reportRunsTotal    *prometheus.CounterVec
	reportRunDuration  prometheus.Histogram
	pollTicksTotal     *prometheus.CounterVec
	reportRunsRejected prometheus.Counter

	// Cache
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissTotal   *prometheus.CounterVec
	cacheErrorsTotal *prometheus.CounterVec
}

// New creates metrics registered with reg.
// If reg is nil, returns a no-op Metrics instance.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{enabled: reg != nil}
	if !m.enabled {
		return m
	}
	f := promauto.With(reg)

	m.authResolutionsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "standup_auth_resolutions_total",
		Help: "Credential resolutions by outcome and source",
	}, []string{"outcome", "source"})

	m.sessionValidationsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "standup_session_validations_total",
		Help: "Who-am-I session validations by result",
	}, []string{"result"})

	m.reportRunsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "standup_report_runs_total",
		Help: "Report generation cycles by result",
	}, []string{"result"})

	m.reportRunDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "standup_report_run_duration_seconds",
		Help:    "Report generation cycle duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.pollTicksTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "standup_report_poll_ticks_total",
		Help: "Task status checks by observed status",
	}, []string{"status"})

	m.reportRunsRejected = f.NewCounter(prometheus.CounterOpts{
		Name: "standup_report_runs_rejected_total",
		Help: "Report generation requests discarded while another was in flight",
	})

	m.cacheHitsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "standup_cache_hits_total",
		Help: "Total cache hits",
	}, []string{"partition"})

	m.cacheMissTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "standup_cache_misses_total",
		Help: "Total cache misses",
	}, []string{"partition"})

	m.cacheErrorsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "standup_cache_errors_total",
		Help: "Cache storage errors swallowed in favour of a direct fetch",
	}, []string{"partition", "op"})

	return m
}

func (m *Metrics) on() bool { return m != nil && m.enabled }

// RecordAuthResolution records a credential resolution outcome.
func (m *Metrics) RecordAuthResolution(outcome, source string) {
	if !m.on() {
		return
	}
	m.authResolutionsTotal.WithLabelValues(outcome, source).Inc()
}

// RecordSessionValidation records a who-am-I result ("ok", "rejected", "error").
func (m *Metrics) RecordSessionValidation(result string) {
	if !m.on() {
		return
	}
	m.sessionValidationsTotal.WithLabelValues(result).Inc()
}

// RecordReportRun records a finished generation cycle.
func (m *Metrics) RecordReportRun(result string, durationSeconds float64) {
	if !m.on() {
		return
	}
	m.reportRunsTotal.WithLabelValues(result).Inc()
	m.reportRunDuration.Observe(durationSeconds)
}

// RecordReportRejected records a generation request discarded by the in-flight guard.
func (m *Metrics) RecordReportRejected() {
	if !m.on() {
		return
	}
	m.reportRunsRejected.Inc()
}

// RecordPollTick records one task status check.
func (m *Metrics) RecordPollTick(status string) {
	if !m.on() {
		return
	}
	m.pollTicksTotal.WithLabelValues(status).Inc()
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit(partition string) {
	if !m.on() {
		return
	}
	m.cacheHitsTotal.WithLabelValues(partition).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(partition string) {
	if !m.on() {
		return
	}
	m.cacheMissTotal.WithLabelValues(partition).Inc()
}

// RecordCacheError records a swallowed storage error.
func (m *Metrics) RecordCacheError(partition, op string) {
	if !m.on() {
		return
	}
	m.cacheErrorsTotal.WithLabelValues(partition, op).Inc()
}
