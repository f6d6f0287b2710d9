package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the ledger package. All methods
// are safe on a nil receiver, so metrics stay optional.
type Metrics struct {
	budgetChecks   *prometheus.CounterVec
	tokensRecorded *prometheus.CounterVec
	costRecorded   *prometheus.CounterVec
	nearLimit      *prometheus.GaugeVec
	analyses       *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with Prometheus collectors
// registered on the default registry. Create one per process and share it
// across ledgers; the identifier label separates them.
func NewMetrics() *Metrics {
	return &Metrics{
		budgetChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_ledger_budget_checks_total",
				Help: "Total number of pre-flight budget checks",
			},
			[]string{"identifier", "result"},
		),

		tokensRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_ledger_tokens_recorded_total",
				Help: "Total tokens recorded by kind",
			},
			[]string{"identifier", "kind"},
		),

		costRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_ledger_cost_usd_total",
				Help: "Total estimated cost recorded in USD",
			},
			[]string{"identifier"},
		),

		nearLimit: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turnstile_ledger_near_limit",
				Help: "Whether a budget tier has reached the warning threshold (0 or 1)",
			},
			[]string{"identifier"},
		),

		analyses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_ledger_prompt_analyses_total",
				Help: "Total prompt optimization analyses by outcome",
			},
			[]string{"identifier", "result"},
		),
	}
}

// RecordCheck records a budget check.
func (m *Metrics) RecordCheck(identifier string, allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "blocked"
	}
	m.budgetChecks.WithLabelValues(identifier, result).Inc()
}

// RecordUsage records a completed call's usage.
func (m *Metrics) RecordUsage(identifier string, u Usage) {
	if m == nil {
		return
	}
	m.tokensRecorded.WithLabelValues(identifier, "prompt").Add(float64(u.PromptTokens))
	m.tokensRecorded.WithLabelValues(identifier, "completion").Add(float64(u.CompletionTokens))
	m.tokensRecorded.WithLabelValues(identifier, "total").Add(float64(u.TotalTokens))
	m.costRecorded.WithLabelValues(identifier).Add(u.EstimatedCost)
}

// SetNearLimit updates the warning threshold gauge.
func (m *Metrics) SetNearLimit(identifier string, near bool) {
	if m == nil {
		return
	}
	v := 0.0
	if near {
		v = 1.0
	}
	m.nearLimit.WithLabelValues(identifier).Set(v)
}

// RecordAnalysis records one prompt analysis outcome.
func (m *Metrics) RecordAnalysis(identifier string, shouldOptimize bool) {
	if m == nil {
		return
	}
	result := "ok"
	if shouldOptimize {
		result = "optimize"
	}
	m.analyses.WithLabelValues(identifier, result).Inc()
}
