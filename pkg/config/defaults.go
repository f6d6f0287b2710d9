package config

import "time"

// Default values for configuration fields.
const (
	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// Governor limit defaults
	DefaultRequestsPerMinute = 60
	DefaultRequestsPerHour   = 1000
	DefaultRequestsPerDay    = 10000
	DefaultTokensPerMinute   = 100000
	DefaultTokensPerHour     = 1000000
	DefaultTokensPerDay      = 5000000
	DefaultPruneInterval     = time.Minute

	// Backoff defaults
	DefaultBackoffInitialDelay   = time.Second
	DefaultBackoffMaxDelay       = 60 * time.Second
	DefaultBackoffMultiplier     = 2.0
	DefaultBackoffJitterFraction = 0.25
	DefaultBackoffMaxRetries     = 3

	// Ledger defaults
	DefaultDailyLimitTokens        = 1000000
	DefaultMonthlyLimitTokens      = 20000000
	DefaultWarningThresholdPercent = 80.0

	// Audit defaults
	DefaultAuditPath            = "data/audit.db"
	DefaultAuditBusyTimeout     = 5 * time.Second
	DefaultAuditRetentionDays   = 30
	DefaultAuditCleanupSchedule = "0 3 * * *"
)

// DefaultConfig returns a configuration with every field at its default.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to any zero-valued fields. It is
// idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	// Governor limit defaults
	if cfg.Governor.Limits.RequestsPerMinute == 0 {
		cfg.Governor.Limits.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Governor.Limits.RequestsPerHour == 0 {
		cfg.Governor.Limits.RequestsPerHour = DefaultRequestsPerHour
	}
	if cfg.Governor.Limits.RequestsPerDay == 0 {
		cfg.Governor.Limits.RequestsPerDay = DefaultRequestsPerDay
	}
	if cfg.Governor.Limits.TokensPerMinute == 0 {
		cfg.Governor.Limits.TokensPerMinute = DefaultTokensPerMinute
	}
	if cfg.Governor.Limits.TokensPerHour == 0 {
		cfg.Governor.Limits.TokensPerHour = DefaultTokensPerHour
	}
	if cfg.Governor.Limits.TokensPerDay == 0 {
		cfg.Governor.Limits.TokensPerDay = DefaultTokensPerDay
	}
	if cfg.Governor.PruneInterval == 0 {
		cfg.Governor.PruneInterval = DefaultPruneInterval
	}

	// Backoff defaults
	if cfg.Governor.Backoff.InitialDelay == 0 {
		cfg.Governor.Backoff.InitialDelay = DefaultBackoffInitialDelay
	}
	if cfg.Governor.Backoff.MaxDelay == 0 {
		cfg.Governor.Backoff.MaxDelay = DefaultBackoffMaxDelay
	}
	if cfg.Governor.Backoff.Multiplier == 0 {
		cfg.Governor.Backoff.Multiplier = DefaultBackoffMultiplier
	}
	if cfg.Governor.Backoff.JitterFraction == 0 {
		cfg.Governor.Backoff.JitterFraction = DefaultBackoffJitterFraction
	}
	if cfg.Governor.Backoff.MaxRetries == 0 {
		cfg.Governor.Backoff.MaxRetries = DefaultBackoffMaxRetries
	}

	// Ledger defaults
	if cfg.Ledger.DailyLimitTokens == 0 {
		cfg.Ledger.DailyLimitTokens = DefaultDailyLimitTokens
	}
	if cfg.Ledger.MonthlyLimitTokens == 0 {
		cfg.Ledger.MonthlyLimitTokens = DefaultMonthlyLimitTokens
	}
	if cfg.Ledger.WarningThresholdPercent == 0 {
		cfg.Ledger.WarningThresholdPercent = DefaultWarningThresholdPercent
	}

	// Audit defaults. Enabled stays at its zero value (false).
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.BusyTimeout == 0 {
		cfg.Audit.BusyTimeout = DefaultAuditBusyTimeout
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultAuditRetentionDays
	}
	if cfg.Audit.CleanupSchedule == "" {
		cfg.Audit.CleanupSchedule = DefaultAuditCleanupSchedule
	}
}
