package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"turnstile-ai/turnstile/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and environment overrides,
and report whether the result is valid.

Examples:
  # Validate the default config file
  turnstile validate

  # Validate a specific file
  turnstile validate --config /etc/turnstile/turnstile.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	fmt.Printf("Configuration valid: %s\n", cfgFile)
	fmt.Println()
	fmt.Printf("Logging:  level=%s format=%s\n", cfg.Logging.Level, cfg.Logging.Format)
	fmt.Printf("Governor: requests %d/min %d/hr %d/day, tokens %d/min %d/hr %d/day\n",
		cfg.Governor.Limits.RequestsPerMinute,
		cfg.Governor.Limits.RequestsPerHour,
		cfg.Governor.Limits.RequestsPerDay,
		cfg.Governor.Limits.TokensPerMinute,
		cfg.Governor.Limits.TokensPerHour,
		cfg.Governor.Limits.TokensPerDay)
	fmt.Printf("Backoff:  initial=%s max=%s multiplier=%.1f retries=%d\n",
		cfg.Governor.Backoff.InitialDelay,
		cfg.Governor.Backoff.MaxDelay,
		cfg.Governor.Backoff.Multiplier,
		cfg.Governor.Backoff.MaxRetries)
	fmt.Printf("Ledger:   daily=%d monthly=%d warn=%.0f%%\n",
		cfg.Ledger.DailyLimitTokens,
		cfg.Ledger.MonthlyLimitTokens,
		cfg.Ledger.WarningThresholdPercent)
	if len(cfg.Ledger.Pricing) > 0 {
		fmt.Printf("Pricing:  %d model entries\n", len(cfg.Ledger.Pricing))
	}
	if cfg.Audit.Enabled {
		fmt.Printf("Audit:    %s (retention %dd, cleanup %q)\n",
			cfg.Audit.Path, cfg.Audit.RetentionDays, cfg.Audit.CleanupSchedule)
	} else {
		fmt.Println("Audit:    disabled")
	}

	return nil
}
