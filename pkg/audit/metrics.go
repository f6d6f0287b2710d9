package audit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the audit package. All methods
// are safe on a nil receiver, so metrics stay optional.
type Metrics struct {
	entriesRecorded *prometheus.CounterVec
	recordFailures  prometheus.Counter
	queries         prometheus.Counter
	entriesPurged   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with Prometheus collectors
// registered on the default registry. Create one per process and share it
// across recorders.
func NewMetrics() *Metrics {
	return &Metrics{
		entriesRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_audit_entries_total",
				Help: "Total number of admission trail entries recorded by event",
			},
			[]string{"event"},
		),

		recordFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "turnstile_audit_record_failures_total",
				Help: "Total number of failed trail writes",
			},
		),

		queries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "turnstile_audit_queries_total",
				Help: "Total number of trail queries",
			},
		),

		entriesPurged: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "turnstile_audit_entries_purged_total",
				Help: "Total number of entries removed by retention cleanup",
			},
		),
	}
}

// RecordEntry records one trail write.
func (m *Metrics) RecordEntry(event Event) {
	if m == nil {
		return
	}
	m.entriesRecorded.WithLabelValues(string(event)).Inc()
}

// RecordFailure records one failed trail write.
func (m *Metrics) RecordFailure() {
	if m == nil {
		return
	}
	m.recordFailures.Inc()
}

// RecordQuery records one trail query.
func (m *Metrics) RecordQuery() {
	if m == nil {
		return
	}
	m.queries.Inc()
}

// RecordPurged records entries removed by retention cleanup.
func (m *Metrics) RecordPurged(count int) {
	if m == nil {
		return
	}
	m.entriesPurged.Add(float64(count))
}

// InstrumentedRecorder wraps a Recorder with Prometheus instrumentation.
// It implements Recorder, so it can stand in anywhere one is accepted,
// including in front of the retention scheduler so purges are counted.
type InstrumentedRecorder struct {
	rec Recorder
	m   *Metrics
}

// WithMetrics wraps rec so every Record, Query, and Cleanup updates m.
// A nil Metrics yields a pass-through wrapper.
func WithMetrics(rec Recorder, m *Metrics) *InstrumentedRecorder {
	return &InstrumentedRecorder{rec: rec, m: m}
}

// Record appends one entry through the wrapped recorder.
func (r *InstrumentedRecorder) Record(ctx context.Context, e Entry) error {
	if err := r.rec.Record(ctx, e); err != nil {
		r.m.RecordFailure()
		return err
	}
	r.m.RecordEntry(e.Event)
	return nil
}

// Query returns matching entries from the wrapped recorder.
func (r *InstrumentedRecorder) Query(ctx context.Context, f Filter) ([]Entry, error) {
	r.m.RecordQuery()
	return r.rec.Query(ctx, f)
}

// Cleanup removes entries through the wrapped recorder and counts the
// removals.
func (r *InstrumentedRecorder) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	n, err := r.rec.Cleanup(ctx, olderThan)
	if n > 0 {
		r.m.RecordPurged(n)
	}
	return n, err
}

// Close closes the wrapped recorder.
func (r *InstrumentedRecorder) Close() error {
	return r.rec.Close()
}
