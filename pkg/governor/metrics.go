package governor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the governor package. All
// methods are safe on a nil receiver, so metrics stay optional.
type Metrics struct {
	// Admission checks
	admissionChecks     *prometheus.CounterVec
	admissionRejections *prometheus.CounterVec

	// Queue and dispatch
	queueDepth    *prometheus.GaugeVec
	dispatches    *prometheus.CounterVec
	capacityWaits *prometheus.HistogramVec

	// Throttle retries
	throttleRetries *prometheus.CounterVec

	// Window history
	tokensRecorded *prometheus.CounterVec
	recordsPruned  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with Prometheus collectors
// registered on the default registry. Create one per process and share it
// across governors; the identifier label separates them.
func NewMetrics() *Metrics {
	return &Metrics{
		admissionChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_governor_admission_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"identifier", "result"},
		),

		admissionRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_governor_admission_rejections_total",
				Help: "Total number of admission rejections by violated window tier",
			},
			[]string{"identifier", "tier"},
		),

		queueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turnstile_governor_queue_depth",
				Help: "Current number of queued, not-yet-dispatched items",
			},
			[]string{"identifier"},
		),

		dispatches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_governor_dispatches_total",
				Help: "Total number of dispatch outcomes",
			},
			[]string{"identifier", "result"},
		),

		capacityWaits: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turnstile_governor_capacity_wait_seconds",
				Help:    "Duration of waits for rolling-window capacity in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~82s
			},
			[]string{"identifier"},
		),

		throttleRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_governor_throttle_retries_total",
				Help: "Total number of provider throttle retries",
			},
			[]string{"identifier"},
		),

		tokensRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_governor_tokens_recorded_total",
				Help: "Total tokens recorded into the dispatch history",
			},
			[]string{"identifier"},
		),

		recordsPruned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_governor_records_pruned_total",
				Help: "Total dispatch records dropped by age-based pruning",
			},
			[]string{"identifier"},
		),
	}
}

// RecordCheck records an admission check.
func (m *Metrics) RecordCheck(identifier string, allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "blocked"
	}
	m.admissionChecks.WithLabelValues(identifier, result).Inc()
}

// RecordRejection records an admission rejection for a violated tier.
func (m *Metrics) RecordRejection(identifier, tier string) {
	if m == nil {
		return
	}
	m.admissionRejections.WithLabelValues(identifier, tier).Inc()
}

// SetQueueDepth updates the queued item gauge.
func (m *Metrics) SetQueueDepth(identifier string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(identifier).Set(float64(depth))
}

// RecordDispatch records a dispatch outcome ("ok", "error",
// "throttle_exhausted", "rejected", or "closed").
func (m *Metrics) RecordDispatch(identifier, result string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(identifier, result).Inc()
}

// RecordCapacityWait records how long the dispatch loop slept for window
// capacity.
func (m *Metrics) RecordCapacityWait(identifier string, wait time.Duration) {
	if m == nil {
		return
	}
	m.capacityWaits.WithLabelValues(identifier).Observe(wait.Seconds())
}

// RecordThrottleRetry records one provider throttle retry.
func (m *Metrics) RecordThrottleRetry(identifier string) {
	if m == nil {
		return
	}
	m.throttleRetries.WithLabelValues(identifier).Inc()
}

// RecordTokens records tokens added to the dispatch history.
func (m *Metrics) RecordTokens(identifier string, tokens int) {
	if m == nil {
		return
	}
	m.tokensRecorded.WithLabelValues(identifier).Add(float64(tokens))
}

// RecordPruned records dispatch records removed by pruning.
func (m *Metrics) RecordPruned(identifier string, count int) {
	if m == nil {
		return
	}
	m.recordsPruned.WithLabelValues(identifier).Add(float64(count))
}
