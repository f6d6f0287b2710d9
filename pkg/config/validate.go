package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "governor.limits.requests_per_minute").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every validation failure in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the entire configuration and returns a ValidationError
// listing every rule that fails, or nil when the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateGovernor(&cfg.Governor)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateLogging validates the logging section.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error (got %q)", cfg.Level),
		})
	}

	switch cfg.Format {
	case "text", "json":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be text or json (got %q)", cfg.Format),
		})
	}

	return errs
}

// validateGovernor validates the governor section.
func validateGovernor(cfg *GovernorConfig) []FieldError {
	var errs []FieldError

	ceilings := []struct {
		field string
		value int
	}{
		{"governor.limits.requests_per_minute", cfg.Limits.RequestsPerMinute},
		{"governor.limits.requests_per_hour", cfg.Limits.RequestsPerHour},
		{"governor.limits.requests_per_day", cfg.Limits.RequestsPerDay},
		{"governor.limits.tokens_per_minute", cfg.Limits.TokensPerMinute},
		{"governor.limits.tokens_per_hour", cfg.Limits.TokensPerHour},
		{"governor.limits.tokens_per_day", cfg.Limits.TokensPerDay},
	}
	for _, c := range ceilings {
		if c.value < 0 {
			errs = append(errs, FieldError{
				Field:   c.field,
				Message: "ceiling must be non-negative",
			})
		}
	}

	if cfg.PruneInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "governor.prune_interval",
			Message: "prune interval must be non-negative",
		})
	}

	if cfg.Backoff.InitialDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "governor.backoff.initial_delay",
			Message: "initial delay must be non-negative",
		})
	}
	if cfg.Backoff.MaxDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "governor.backoff.max_delay",
			Message: "max delay must be non-negative",
		})
	}
	if cfg.Backoff.MaxDelay > 0 && cfg.Backoff.InitialDelay > cfg.Backoff.MaxDelay {
		errs = append(errs, FieldError{
			Field:   "governor.backoff.max_delay",
			Message: "max delay must not be below initial delay",
		})
	}
	if cfg.Backoff.Multiplier < 1 {
		errs = append(errs, FieldError{
			Field:   "governor.backoff.multiplier",
			Message: fmt.Sprintf("multiplier must be at least 1 (got %v)", cfg.Backoff.Multiplier),
		})
	}
	if cfg.Backoff.JitterFraction < 0 || cfg.Backoff.JitterFraction > 1 {
		errs = append(errs, FieldError{
			Field:   "governor.backoff.jitter_fraction",
			Message: fmt.Sprintf("jitter fraction must be between 0 and 1 (got %v)", cfg.Backoff.JitterFraction),
		})
	}
	if cfg.Backoff.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "governor.backoff.max_retries",
			Message: "max retries must be non-negative",
		})
	}

	return errs
}

// validateLedger validates the ledger section.
func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	if cfg.DailyLimitTokens < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.daily_limit_tokens",
			Message: "daily limit must be non-negative",
		})
	}
	if cfg.MonthlyLimitTokens < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.monthly_limit_tokens",
			Message: "monthly limit must be non-negative",
		})
	}
	if cfg.WarningThresholdPercent < 0 || cfg.WarningThresholdPercent > 100 {
		errs = append(errs, FieldError{
			Field:   "ledger.warning_threshold_percent",
			Message: fmt.Sprintf("warning threshold must be between 0 and 100 (got %v)", cfg.WarningThresholdPercent),
		})
	}

	for model, price := range cfg.Pricing {
		if price.Prompt < 0 || price.Completion < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("ledger.pricing.%s", model),
				Message: "prices must be non-negative",
			})
		}
	}

	return errs
}

// validateAudit validates the audit section. Path and schedule are only
// checked when auditing is enabled.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention_days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.busy_timeout",
			Message: "busy timeout must be non-negative",
		})
	}

	if !cfg.Enabled {
		return errs
	}

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "audit.path",
			Message: "path is required when audit is enabled",
		})
	}
	if cfg.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(cfg.CleanupSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.cleanup_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}
