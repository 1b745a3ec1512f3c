// Package metrics exposes Prometheus instrumentation for the coordinator.
// All recording methods tolerate a nil *Metrics (the zero-overhead path used
// when metrics are disabled), so call sites never need a nil check.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for one coordinator instance.
type Metrics struct {
	acquireAttempts  *prometheus.CounterVec
	acquireOutcomes  *prometheus.CounterVec
	acquireLatency   *prometheus.HistogramVec
	releaseTotal     *prometheus.CounterVec
	extendTotal      *prometheus.CounterVec
	journalRetries   prometheus.Counter
	waiterQueueDepth *prometheus.GaugeVec
}

// New registers the coordinator's collectors against reg and returns a
// Metrics instance. Pass nil to disable metrics entirely; every recording
// method is then a no-op.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)
	return &Metrics{
		acquireAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "globallock_acquire_attempts_total",
			Help: "Total number of TryAcquire calls by resource.",
		}, []string{"resource"}),
		acquireOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "globallock_acquire_outcomes_total",
			Help: "Total number of acquisition protocol outcomes by result.",
		}, []string{"result"}), // acquired, unavailable, cancelled, failed
		acquireLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "globallock_acquire_duration_seconds",
			Help:    "Latency of a single acquisition protocol run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
		releaseTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "globallock_release_total",
			Help: "Total number of Release calls by outcome.",
		}, []string{"outcome"}), // completed, failed
		extendTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "globallock_extend_total",
			Help: "Total number of TryExtend calls by outcome.",
		}, []string{"outcome"}), // extended, not_active
		journalRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "globallock_journal_etag_retries_total",
			Help: "Total number of retry-from-read cycles triggered by an HTTP 412 ETag conflict.",
		}),
		waiterQueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "globallock_waiter_queue_depth",
			Help: "Current number of queued local waiters by resourceUID.",
		}, []string{"resource_uid"}),
	}
}

// Handler returns an http.Handler serving the Prometheus exposition format
// for reg, ready to mount at e.g. "/metrics".
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordAcquireAttempt(resource string) {
	if m == nil {
		return
	}
	m.acquireAttempts.WithLabelValues(resource).Inc()
}

func (m *Metrics) RecordAcquireOutcome(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.acquireOutcomes.WithLabelValues(result).Inc()
	m.acquireLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordRelease(outcome string) {
	if m == nil {
		return
	}
	m.releaseTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordExtend(outcome string) {
	if m == nil {
		return
	}
	m.extendTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordJournalRetry() {
	if m == nil {
		return
	}
	m.journalRetries.Inc()
}

func (m *Metrics) SetWaiterQueueDepth(resourceUID string, depth int) {
	if m == nil {
		return
	}
	m.waiterQueueDepth.WithLabelValues(resourceUID).Set(float64(depth))
}
