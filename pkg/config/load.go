package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// TURNSTILE_SECTION_FIELD (e.g. TURNSTILE_GOVERNOR_REQUESTS_PER_MINUTE)
// and always take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file and apply defaults
//  2. Apply environment variable overrides
//  3. Validate the final configuration
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies TURNSTILE_* environment variables to the
// configuration. Unparseable values are ignored; validation afterwards
// catches any resulting inconsistency.
func applyEnvOverrides(cfg *Config) {
	// Logging overrides
	if val := os.Getenv("TURNSTILE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("TURNSTILE_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	// Governor limit overrides
	setEnvInt("TURNSTILE_GOVERNOR_REQUESTS_PER_MINUTE", &cfg.Governor.Limits.RequestsPerMinute)
	setEnvInt("TURNSTILE_GOVERNOR_REQUESTS_PER_HOUR", &cfg.Governor.Limits.RequestsPerHour)
	setEnvInt("TURNSTILE_GOVERNOR_REQUESTS_PER_DAY", &cfg.Governor.Limits.RequestsPerDay)
	setEnvInt("TURNSTILE_GOVERNOR_TOKENS_PER_MINUTE", &cfg.Governor.Limits.TokensPerMinute)
	setEnvInt("TURNSTILE_GOVERNOR_TOKENS_PER_HOUR", &cfg.Governor.Limits.TokensPerHour)
	setEnvInt("TURNSTILE_GOVERNOR_TOKENS_PER_DAY", &cfg.Governor.Limits.TokensPerDay)
	setEnvDuration("TURNSTILE_GOVERNOR_PRUNE_INTERVAL", &cfg.Governor.PruneInterval)

	// Backoff overrides
	setEnvDuration("TURNSTILE_GOVERNOR_BACKOFF_INITIAL_DELAY", &cfg.Governor.Backoff.InitialDelay)
	setEnvDuration("TURNSTILE_GOVERNOR_BACKOFF_MAX_DELAY", &cfg.Governor.Backoff.MaxDelay)
	setEnvFloat("TURNSTILE_GOVERNOR_BACKOFF_MULTIPLIER", &cfg.Governor.Backoff.Multiplier)
	setEnvFloat("TURNSTILE_GOVERNOR_BACKOFF_JITTER_FRACTION", &cfg.Governor.Backoff.JitterFraction)
	setEnvInt("TURNSTILE_GOVERNOR_BACKOFF_MAX_RETRIES", &cfg.Governor.Backoff.MaxRetries)

	// Ledger overrides
	setEnvInt("TURNSTILE_LEDGER_DAILY_LIMIT_TOKENS", &cfg.Ledger.DailyLimitTokens)
	setEnvInt("TURNSTILE_LEDGER_MONTHLY_LIMIT_TOKENS", &cfg.Ledger.MonthlyLimitTokens)
	setEnvFloat("TURNSTILE_LEDGER_WARNING_THRESHOLD_PERCENT", &cfg.Ledger.WarningThresholdPercent)

	// Audit overrides
	setEnvBool("TURNSTILE_AUDIT_ENABLED", &cfg.Audit.Enabled)
	if val := os.Getenv("TURNSTILE_AUDIT_PATH"); val != "" {
		cfg.Audit.Path = val
	}
	setEnvDuration("TURNSTILE_AUDIT_BUSY_TIMEOUT", &cfg.Audit.BusyTimeout)
	setEnvInt("TURNSTILE_AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays)
	if val := os.Getenv("TURNSTILE_AUDIT_CLEANUP_SCHEDULE"); val != "" {
		cfg.Audit.CleanupSchedule = val
	}
}

// setEnvInt overrides dst with the named variable when set and parseable.
func setEnvInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

// setEnvFloat overrides dst with the named variable when set and parseable.
func setEnvFloat(name string, dst *float64) {
	if val := os.Getenv(name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

// setEnvDuration overrides dst with the named variable when set and
// parseable.
func setEnvDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// setEnvBool overrides dst with the named variable when set and parseable.
func setEnvBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
