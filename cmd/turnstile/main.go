// Turnstile is an admission-control and budget-governance layer for
// metered, rate-limited LLM inference APIs.
//
// It fronts an inference client with a request governor (rolling-window
// rate ceilings, priority queueing, throttle-aware retry) and a usage
// ledger (daily and monthly token budgets, cost attribution, prompt
// optimization hints).
//
// Usage:
//
//	# Validate a configuration file
//	turnstile validate --config turnstile.yaml
//
//	# Estimate tokens and cost for a prompt
//	turnstile estimate prompt.txt --model gpt-4o
//
//	# Analyze a prompt for optimization opportunities
//	turnstile analyze prompt.txt
//
//	# Run a synthetic workload through a real governor and ledger
//	turnstile simulate --requests 500 --rate 50 --fail-rate 0.1
//
//	# Show version information
//	turnstile version
//
// For complete documentation, see: https://github.com/turnstile-ai/turnstile
package main

func main() {
	Execute()
}
