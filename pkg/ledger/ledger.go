package ledger

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// dateLayout keys daily usage entries, always in UTC.
const dateLayout = "2006-01-02"

// Usage is the token and cost outcome of one completed call.
type Usage struct {
	// PromptTokens is the prompt token count as reported by the provider.
	PromptTokens int

	// CompletionTokens is the completion token count.
	CompletionTokens int

	// TotalTokens is the total billed token count. Budget totals sum this
	// field.
	TotalTokens int

	// EstimatedCost is the USD cost attributed to the call.
	EstimatedCost float64
}

// DailyUsage is one day's accumulated usage.
type DailyUsage struct {
	// Date is the UTC day in 2006-01-02 form.
	Date string

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCost    float64
}

// BudgetConfig holds the ledger's enforcement settings.
type BudgetConfig struct {
	// DailyLimitTokens caps one UTC day's total tokens. Zero disables the
	// daily check.
	DailyLimitTokens int

	// MonthlyLimitTokens caps the current calendar month's total tokens.
	// Zero disables the monthly check.
	MonthlyLimitTokens int

	// WarningThresholdPercent is the percent of either limit at which the
	// ledger reports NearLimit. Valid range 0 to 100; zero disables the
	// warning.
	WarningThresholdPercent float64
}

// TierStatus reports one budget tier.
type TierStatus struct {
	// Used is the tokens consumed in the tier's period.
	Used int

	// Limit is the configured cap. Zero means unenforced.
	Limit int

	// Remaining is Limit - Used, floored at zero. Zero when unenforced.
	Remaining int

	// PercentUsed is Used as a percent of Limit. Zero when unenforced.
	PercentUsed float64
}

// BudgetStatus reports both budget tiers.
type BudgetStatus struct {
	Daily   TierStatus
	Monthly TierStatus

	// NearLimit indicates either tier has reached the warning threshold.
	NearLimit bool
}

// BudgetCheck is the result of a pre-flight budget check.
type BudgetCheck struct {
	// Allowed indicates the estimate fits under both enforced limits.
	Allowed bool

	// Reason explains the rejection (if Allowed=false). When both limits
	// would be violated the daily reason wins, being the tighter
	// constraint.
	Reason string

	// Status is the budget snapshot the decision was made against,
	// excluding the checked estimate.
	Status BudgetStatus
}

// LimitsUpdate is a partial budget update. Nil fields keep their current
// values.
type LimitsUpdate struct {
	DailyLimitTokens        *int
	MonthlyLimitTokens      *int
	WarningThresholdPercent *float64
}

// Config configures a Ledger.
type Config struct {
	// Name identifies the ledger in logs and metric labels. Defaults to
	// "default".
	Name string

	// Budget holds the enforcement settings. A threshold outside 0-100 is
	// clamped into range.
	Budget BudgetConfig

	// Pricing prices cost estimates. Defaults to DefaultPricingTable().
	Pricing *PricingTable

	// Logger is the structured logger. Defaults to slog.Default() scoped
	// with component=ledger.
	Logger *slog.Logger

	// Metrics, when set, receives Prometheus metrics. Create one Metrics
	// per process and share it across ledgers.
	Metrics *Metrics
}

// Ledger accumulates daily token usage and answers budget checks against
// it. Entries are never deleted; memory is bounded by process lifetime at
// one small entry per active day.
type Ledger struct {
	name    string
	pricing *PricingTable
	logger  *slog.Logger
	metrics *Metrics

	// now is the clock, replaceable in tests.
	now func() time.Time

	mu   sync.RWMutex
	cfg  BudgetConfig
	days map[string]*DailyUsage
}

// New creates a Ledger.
func New(cfg Config) *Ledger {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Pricing == nil {
		cfg.Pricing = DefaultPricingTable()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "ledger")
	}
	if cfg.Budget.WarningThresholdPercent < 0 {
		cfg.Budget.WarningThresholdPercent = 0
	}
	if cfg.Budget.WarningThresholdPercent > 100 {
		cfg.Budget.WarningThresholdPercent = 100
	}

	return &Ledger{
		name:    cfg.Name,
		pricing: cfg.Pricing,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     time.Now,
		cfg:     cfg.Budget,
		days:    make(map[string]*DailyUsage),
	}
}

// dayKey returns the UTC date key for a time.
func dayKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// CheckBudget reports whether an estimated spend fits under the enforced
// limits. No side effects; an allowed check reserves nothing.
func (l *Ledger) CheckBudget(estimate int) BudgetCheck {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.now()
	daily := l.dailyTotalLocked(now)
	monthly := l.monthlyTotalLocked(now)

	check := BudgetCheck{
		Allowed: true,
		Status:  l.statusFromTotalsLocked(daily, monthly),
	}

	// Monthly first so a daily violation overwrites the reason; the daily
	// limit is the tighter constraint.
	if l.cfg.MonthlyLimitTokens > 0 && monthly+estimate > l.cfg.MonthlyLimitTokens {
		check.Allowed = false
		check.Reason = "monthly token budget exceeded"
	}
	if l.cfg.DailyLimitTokens > 0 && daily+estimate > l.cfg.DailyLimitTokens {
		check.Allowed = false
		check.Reason = "daily token budget exceeded"
	}

	l.metrics.RecordCheck(l.name, check.Allowed)
	return check
}

// RecordUsage adds a completed call's usage to today's entry, creating it
// if absent. Recording is unconditional; no budget check happens here.
func (l *Ledger) RecordUsage(u Usage) {
	l.mu.Lock()

	now := l.now()
	wasNear := l.nearLimitLocked(now)

	key := dayKey(now)
	day, ok := l.days[key]
	if !ok {
		day = &DailyUsage{Date: key}
		l.days[key] = day
	}
	day.PromptTokens += u.PromptTokens
	day.CompletionTokens += u.CompletionTokens
	day.TotalTokens += u.TotalTokens
	day.EstimatedCost += u.EstimatedCost

	status := l.statusLocked(now)
	threshold := l.cfg.WarningThresholdPercent
	l.mu.Unlock()

	l.metrics.RecordUsage(l.name, u)
	l.metrics.SetNearLimit(l.name, status.NearLimit)

	if status.NearLimit && !wasNear {
		l.logger.Warn("budget warning threshold crossed",
			"daily_used", status.Daily.Used,
			"daily_limit", status.Daily.Limit,
			"monthly_used", status.Monthly.Used,
			"monthly_limit", status.Monthly.Limit,
			"threshold_percent", threshold,
		)
	}
}

// Status returns the current budget snapshot.
func (l *Ledger) Status() BudgetStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statusLocked(l.now())
}

// statusLocked builds the budget snapshot. Callers must hold l.mu.
func (l *Ledger) statusLocked(now time.Time) BudgetStatus {
	return l.statusFromTotalsLocked(l.dailyTotalLocked(now), l.monthlyTotalLocked(now))
}

// statusFromTotalsLocked builds the snapshot from precomputed totals.
// Callers must hold l.mu.
func (l *Ledger) statusFromTotalsLocked(daily, monthly int) BudgetStatus {
	st := BudgetStatus{
		Daily:   tierStatus(daily, l.cfg.DailyLimitTokens),
		Monthly: tierStatus(monthly, l.cfg.MonthlyLimitTokens),
	}
	if t := l.cfg.WarningThresholdPercent; t > 0 {
		st.NearLimit = st.Daily.PercentUsed >= t || st.Monthly.PercentUsed >= t
	}
	return st
}

// nearLimitLocked reports whether either tier has reached the warning
// threshold. Callers must hold l.mu.
func (l *Ledger) nearLimitLocked(now time.Time) bool {
	return l.statusLocked(now).NearLimit
}

// tierStatus derives one tier's status from its total and limit.
func tierStatus(used, limit int) TierStatus {
	ts := TierStatus{Used: used, Limit: limit}
	if limit > 0 {
		ts.Remaining = limit - used
		if ts.Remaining < 0 {
			ts.Remaining = 0
		}
		ts.PercentUsed = float64(used) / float64(limit) * 100
	}
	return ts
}

// dailyTotalLocked returns today's total tokens. Callers must hold l.mu.
func (l *Ledger) dailyTotalLocked(now time.Time) int {
	if day, ok := l.days[dayKey(now)]; ok {
		return day.TotalTokens
	}
	return 0
}

// monthlyTotalLocked sums the entries whose date falls in the current
// calendar month. Callers must hold l.mu.
func (l *Ledger) monthlyTotalLocked(now time.Time) int {
	year, month, _ := now.UTC().Date()

	total := 0
	for key, day := range l.days {
		t, err := time.Parse(dateLayout, key)
		if err != nil {
			continue
		}
		if t.Year() == year && t.Month() == month {
			total += day.TotalTokens
		}
	}
	return total
}

// UpdateLimits applies a partial budget update. Nil fields keep their
// current values; the threshold is validated to 0-100.
func (l *Ledger) UpdateLimits(u LimitsUpdate) error {
	if u.DailyLimitTokens != nil && *u.DailyLimitTokens < 0 {
		return fmt.Errorf("daily limit cannot be negative: %d", *u.DailyLimitTokens)
	}
	if u.MonthlyLimitTokens != nil && *u.MonthlyLimitTokens < 0 {
		return fmt.Errorf("monthly limit cannot be negative: %d", *u.MonthlyLimitTokens)
	}
	if u.WarningThresholdPercent != nil &&
		(*u.WarningThresholdPercent < 0 || *u.WarningThresholdPercent > 100) {
		return fmt.Errorf("warning threshold must be between 0 and 100: %v", *u.WarningThresholdPercent)
	}

	l.mu.Lock()
	if u.DailyLimitTokens != nil {
		l.cfg.DailyLimitTokens = *u.DailyLimitTokens
	}
	if u.MonthlyLimitTokens != nil {
		l.cfg.MonthlyLimitTokens = *u.MonthlyLimitTokens
	}
	if u.WarningThresholdPercent != nil {
		l.cfg.WarningThresholdPercent = *u.WarningThresholdPercent
	}
	cfg := l.cfg
	l.mu.Unlock()

	l.logger.Info("budget limits updated",
		"daily_limit_tokens", cfg.DailyLimitTokens,
		"monthly_limit_tokens", cfg.MonthlyLimitTokens,
		"warning_threshold_percent", cfg.WarningThresholdPercent,
	)
	return nil
}

// Limits returns the current budget configuration.
func (l *Ledger) Limits() BudgetConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// EstimateCost prices a call with the ledger's pricing table.
func (l *Ledger) EstimateCost(model string, promptTokens, completionTokens int) float64 {
	return l.pricing.Cost(model, promptTokens, completionTokens)
}

// Analyze runs the advisory prompt optimization heuristics.
func (l *Ledger) Analyze(prompt string) Analysis {
	a := Analyze(prompt)
	l.metrics.RecordAnalysis(l.name, a.ShouldOptimize)
	return a
}

// History returns a copy of every daily entry, oldest first.
func (l *Ledger) History() []DailyUsage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]DailyUsage, 0, len(l.days))
	for _, day := range l.days {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
