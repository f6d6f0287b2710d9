package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"turnstile-ai/turnstile/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "turnstile",
	Short: "Turnstile - admission control and budget governance for LLM APIs",
	Long: `Turnstile is an admission-control and budget-governance layer that fronts
metered, rate-limited LLM inference APIs.

It provides:
  - Rolling-window rate ceilings (requests and tokens per minute/hour/day)
  - Priority queueing with single-flight dispatch
  - Throttle-aware retry with exponential backoff
  - Daily and monthly token budgets with cost attribution
  - Prompt optimization analysis
  - An audit trail of admission decisions

For more information, visit: https://github.com/turnstile-ai/turnstile`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "turnstile.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configured file with environment overrides applied.
// A missing file falls back to defaults so commands work out of the box;
// any other failure is fatal.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging config. Verbose
// forces debug level. Logs go to stderr so command output stays clean on
// stdout.
func newLogger(cfg *config.Config) *slog.Logger {
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg.Logging.NewLogger(os.Stderr)
}
