// Package ledger tracks token spend against daily and monthly budgets.
//
// The ledger accumulates per-day usage entries keyed by UTC date and
// answers pre-flight budget checks from them: today's total against the
// daily limit, and the current calendar month's total against the monthly
// limit. Recording is unconditional; a completed call is a fact whether or
// not the budget liked it.
//
// # Overview
//
// The package also carries the supporting arithmetic budget governance
// needs: deterministic character-based token estimation, a per-model
// pricing table for USD cost estimates, and an advisory prompt analyzer
// that flags optimization opportunities without gating anything.
//
// # Usage
//
//	led := ledger.New(ledger.Config{
//		Budget: ledger.BudgetConfig{
//			DailyLimitTokens:        1_000_000,
//			MonthlyLimitTokens:      20_000_000,
//			WarningThresholdPercent: 80,
//		},
//	})
//
//	estimate := ledger.EstimateTokens(prompt)
//	if check := led.CheckBudget(estimate); !check.Allowed {
//		return fmt.Errorf("budget: %s", check.Reason)
//	}
//
//	// ... make the provider call ...
//
//	led.RecordUsage(ledger.Usage{
//		PromptTokens:     resp.Usage.PromptTokens,
//		CompletionTokens: resp.Usage.CompletionTokens,
//		TotalTokens:      resp.Usage.TotalTokens,
//		EstimatedCost:    led.EstimateCost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
//	})
//
// # Thread Safety
//
// All Ledger methods are safe for concurrent use.
package ledger
