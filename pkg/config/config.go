package config

import (
	"io"
	"log/slog"
	"time"

	"turnstile-ai/turnstile/pkg/audit"
	"turnstile-ai/turnstile/pkg/governor"
	"turnstile-ai/turnstile/pkg/ledger"
)

// Config is the root configuration structure for turnstile. It contains
// the logging, governor, ledger, and audit sections.
type Config struct {
	// Logging controls log level and output format.
	Logging LoggingConfig `yaml:"logging"`

	// Governor contains admission control settings: the six rolling-window
	// ceilings, throttle backoff, and history pruning.
	Governor GovernorConfig `yaml:"governor"`

	// Ledger contains budget governance settings: daily and monthly token
	// limits, the warning threshold, and optional model pricing.
	Ledger LedgerConfig `yaml:"ledger"`

	// Audit contains admission audit trail settings.
	Audit AuditConfig `yaml:"audit"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "text" or "json".
	// Default: "text"
	Format string `yaml:"format"`
}

// SlogLevel returns the slog level for the configured level string.
// Unknown values fall back to info; Validate rejects them before this
// matters.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a slog.Logger writing to w in the configured format and
// level.
func (c LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// GovernorConfig contains admission control settings.
type GovernorConfig struct {
	// Limits are the six rolling-window admission ceilings.
	Limits LimitsConfig `yaml:"limits"`

	// Backoff governs retry escalation for provider throttle errors.
	Backoff BackoffConfig `yaml:"backoff"`

	// PruneInterval is how often dispatch records older than the largest
	// window are dropped.
	// Default: 1m
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// LimitsConfig holds the six admission ceilings. A zero ceiling admits
// nothing; ApplyDefaults replaces zeros with generous defaults so an
// all-blocking config has to be written explicitly.
type LimitsConfig struct {
	// RequestsPerMinute limits dispatched requests per trailing minute.
	// Default: 60
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// RequestsPerHour limits dispatched requests per trailing hour.
	// Default: 1000
	RequestsPerHour int `yaml:"requests_per_hour"`

	// RequestsPerDay limits dispatched requests per trailing day.
	// Default: 10000
	RequestsPerDay int `yaml:"requests_per_day"`

	// TokensPerMinute limits tokens per trailing minute.
	// Default: 100000
	TokensPerMinute int `yaml:"tokens_per_minute"`

	// TokensPerHour limits tokens per trailing hour.
	// Default: 1000000
	TokensPerHour int `yaml:"tokens_per_hour"`

	// TokensPerDay limits tokens per trailing day.
	// Default: 5000000
	TokensPerDay int `yaml:"tokens_per_day"`
}

// GovernorLimits converts the section into the governor's limit type.
func (c LimitsConfig) GovernorLimits() governor.LimitConfig {
	return governor.LimitConfig{
		RequestsPerMinute: c.RequestsPerMinute,
		RequestsPerHour:   c.RequestsPerHour,
		RequestsPerDay:    c.RequestsPerDay,
		TokensPerMinute:   c.TokensPerMinute,
		TokensPerHour:     c.TokensPerHour,
		TokensPerDay:      c.TokensPerDay,
	}
}

// BackoffConfig holds throttle retry settings.
type BackoffConfig struct {
	// InitialDelay is the delay before the first retry.
	// Default: 1s
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay caps the computed delay before jitter.
	// Default: 60s
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier is the exponential escalation factor.
	// Default: 2.0
	Multiplier float64 `yaml:"multiplier"`

	// JitterFraction adds +/- this fraction of random jitter to each
	// delay. Valid range 0 to 1.
	// Default: 0.25
	JitterFraction float64 `yaml:"jitter_fraction"`

	// MaxRetries is how many times a throttled work unit is retried
	// before the error propagates.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`
}

// GovernorBackoff converts the section into the governor's backoff type.
func (c BackoffConfig) GovernorBackoff() governor.BackoffConfig {
	return governor.BackoffConfig{
		InitialDelay:   c.InitialDelay,
		MaxDelay:       c.MaxDelay,
		Multiplier:     c.Multiplier,
		JitterFraction: c.JitterFraction,
		MaxRetries:     c.MaxRetries,
	}
}

// LedgerConfig contains budget governance settings.
type LedgerConfig struct {
	// DailyLimitTokens caps one UTC day's total tokens. Zero disables the
	// daily check.
	// Default: 1000000
	DailyLimitTokens int `yaml:"daily_limit_tokens"`

	// MonthlyLimitTokens caps the current calendar month's total tokens.
	// Zero disables the monthly check.
	// Default: 20000000
	MonthlyLimitTokens int `yaml:"monthly_limit_tokens"`

	// WarningThresholdPercent is the percent of either limit at which the
	// ledger reports NearLimit. Valid range 0 to 100; zero disables the
	// warning.
	// Default: 80
	WarningThresholdPercent float64 `yaml:"warning_threshold_percent"`

	// Pricing maps model names to per-1K-token USD prices. An entry named
	// "default" prices unknown models. Empty means the built-in table.
	Pricing map[string]ModelPrice `yaml:"pricing"`
}

// ModelPrice is the per-1K-token USD price for one model.
type ModelPrice struct {
	// Prompt is the USD price per 1K prompt tokens.
	Prompt float64 `yaml:"prompt"`

	// Completion is the USD price per 1K completion tokens.
	Completion float64 `yaml:"completion"`
}

// Budget converts the section into the ledger's budget type.
func (c LedgerConfig) Budget() ledger.BudgetConfig {
	return ledger.BudgetConfig{
		DailyLimitTokens:        c.DailyLimitTokens,
		MonthlyLimitTokens:      c.MonthlyLimitTokens,
		WarningThresholdPercent: c.WarningThresholdPercent,
	}
}

// LimitsUpdate converts the section into a full ledger limits update, for
// applying a reloaded config to a running ledger.
func (c LedgerConfig) LimitsUpdate() ledger.LimitsUpdate {
	daily := c.DailyLimitTokens
	monthly := c.MonthlyLimitTokens
	threshold := c.WarningThresholdPercent
	return ledger.LimitsUpdate{
		DailyLimitTokens:        &daily,
		MonthlyLimitTokens:      &monthly,
		WarningThresholdPercent: &threshold,
	}
}

// PricingTable builds a pricing table from the configured prices, or nil
// when no custom pricing is set so the ledger falls back to its built-in
// table.
func (c LedgerConfig) PricingTable() *ledger.PricingTable {
	if len(c.Pricing) == 0 {
		return nil
	}
	prices := make(map[string]ledger.Price, len(c.Pricing))
	for model, p := range c.Pricing {
		prices[model] = ledger.Price{Prompt: p.Prompt, Completion: p.Completion}
	}
	return ledger.NewPricingTable(prices)
}

// AuditConfig contains admission audit trail settings.
type AuditConfig struct {
	// Enabled turns on SQLite-backed audit recording.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long SQLite waits for locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays is how many days of audit entries to keep.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// CleanupSchedule is the cron expression for the retention sweep.
	// Default: "0 3 * * *"
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// RecorderConfig converts the section into the audit recorder's config.
func (c AuditConfig) RecorderConfig() audit.SQLiteRecorderConfig {
	return audit.SQLiteRecorderConfig{
		Path:        c.Path,
		BusyTimeout: c.BusyTimeout,
	}
}

// SchedulerConfig converts the section into the retention scheduler's
// config.
func (c AuditConfig) SchedulerConfig() audit.SchedulerConfig {
	return audit.SchedulerConfig{
		Schedule:  c.CleanupSchedule,
		Retention: time.Duration(c.RetentionDays) * 24 * time.Hour,
	}
}
