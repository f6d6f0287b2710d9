package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"turnstile-ai/turnstile/pkg/ledger"
)

var estimateFlags struct {
	model            string
	completionTokens int
}

var estimateCmd = &cobra.Command{
	Use:   "estimate [file]",
	Short: "Estimate tokens and cost for a prompt",
	Long: `Estimate the token count of a prompt and the cost of sending it,
using the pricing table from the configuration file (or built-in
defaults when none is configured).

The prompt is read from the file argument, or from stdin when no
argument is given.

Examples:
  # Estimate a prompt file
  turnstile estimate prompt.txt --model gpt-4o

  # Estimate from stdin with an expected completion size
  cat prompt.txt | turnstile estimate --model claude-3-5-sonnet --completion-tokens 500`,
	Args: cobra.MaximumNArgs(1),
	RunE: estimatePrompt,
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringVarP(&estimateFlags.model, "model", "m", "gpt-4o", "model name for pricing lookup")
	estimateCmd.Flags().IntVar(&estimateFlags.completionTokens, "completion-tokens", 0, "expected completion tokens to include in the cost")
}

// readPrompt reads the prompt text from the file argument or stdin.
func readPrompt(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file %q: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	return string(data), nil
}

// pricingFromConfig returns the configured pricing table, falling back to
// the built-in defaults.
func pricingFromConfig() (*ledger.PricingTable, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if p := cfg.Ledger.PricingTable(); p != nil {
		return p, nil
	}
	return ledger.DefaultPricingTable(), nil
}

func estimatePrompt(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args)
	if err != nil {
		return err
	}
	pricing, err := pricingFromConfig()
	if err != nil {
		return err
	}

	promptTokens := ledger.EstimateTokens(prompt)
	cost := pricing.Cost(estimateFlags.model, promptTokens, estimateFlags.completionTokens)

	fmt.Printf("Model:             %s\n", estimateFlags.model)
	fmt.Printf("Prompt length:     %d chars\n", len(prompt))
	fmt.Printf("Prompt tokens:     ~%d\n", promptTokens)
	if estimateFlags.completionTokens > 0 {
		fmt.Printf("Completion tokens: %d (assumed)\n", estimateFlags.completionTokens)
	}
	fmt.Printf("Estimated cost:    $%.6f\n", cost)

	return nil
}
