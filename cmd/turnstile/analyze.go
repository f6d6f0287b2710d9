package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"turnstile-ai/turnstile/pkg/ledger"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a prompt for optimization opportunities",
	Long: `Run the prompt optimizer over a prompt and print its recommendations.

The optimizer flags oversized prompts, repeated content, excessive
example counts, and redundant role declarations, with a rough estimate
of the tokens each recommendation could save.

The prompt is read from the file argument, or from stdin when no
argument is given.

Examples:
  # Analyze a prompt file
  turnstile analyze prompt.txt

  # Analyze from stdin
  cat prompt.txt | turnstile analyze`,
	Args: cobra.MaximumNArgs(1),
	RunE: analyzePrompt,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func analyzePrompt(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args)
	if err != nil {
		return err
	}

	result := ledger.Analyze(prompt)

	fmt.Printf("Prompt length: %d chars (~%d tokens)\n", len(prompt), ledger.EstimateTokens(prompt))
	fmt.Println()

	if !result.ShouldOptimize {
		fmt.Println("No optimization opportunities found.")
		return nil
	}

	fmt.Printf("Recommendations (%d):\n", len(result.Recommendations))
	for _, rec := range result.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
	fmt.Println()
	fmt.Printf("Estimated savings: ~%d tokens\n", result.EstimatedSavings)

	return nil
}
