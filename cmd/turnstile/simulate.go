package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"turnstile-ai/turnstile/pkg/audit"
	"turnstile-ai/turnstile/pkg/cli"
	"turnstile-ai/turnstile/pkg/governor"
	"turnstile-ai/turnstile/pkg/ledger"
	"turnstile-ai/turnstile/pkg/throttle"
)

var simulateFlags struct {
	requests       int
	workers        int
	rate           float64
	failRate       float64
	latency        time.Duration
	estimateTokens int
	model          string
	metricsAddr    string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a synthetic workload through a governor and ledger",
	Long: `Drive a synthetic request stream through a real governor and ledger,
backed by a simulated provider with configurable latency and throttle
behavior.

Submissions are paced at --rate per second and rotate through the three
priorities. Each request is gated by the budget ledger, admitted by the
governor, and executed against the simulated provider; successful calls
are recorded back into the ledger. The run ends with a report of
dispatch counts, window usage, and budget status.

The governor, ledger, and audit settings come from the configuration
file. With audit enabled the admission trail is written to SQLite and
survives the run; otherwise it is kept in memory for the final report.

Examples:
  # Default workload: 200 requests at 50/s through the default config
  turnstile simulate

  # A throttling-heavy run against tight ceilings
  turnstile simulate --config tight.yaml --requests 500 --fail-rate 0.3

  # Expose Prometheus metrics while the simulation runs
  turnstile simulate --requests 10000 --rate 20 --metrics-addr :9090`,
	RunE: runSimulation,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVarP(&simulateFlags.requests, "requests", "n", 200, "number of requests to submit")
	simulateCmd.Flags().IntVarP(&simulateFlags.workers, "workers", "w", 8, "maximum in-flight requests")
	simulateCmd.Flags().Float64VarP(&simulateFlags.rate, "rate", "r", 50, "submission rate per second (0 for unpaced)")
	simulateCmd.Flags().Float64Var(&simulateFlags.failRate, "fail-rate", 0.1, "fraction of provider calls that throttle (0 to 1)")
	simulateCmd.Flags().DurationVar(&simulateFlags.latency, "latency", 20*time.Millisecond, "simulated provider latency")
	simulateCmd.Flags().IntVar(&simulateFlags.estimateTokens, "estimate-tokens", 500, "token estimate per request")
	simulateCmd.Flags().StringVarP(&simulateFlags.model, "model", "m", "gpt-4o", "model name for cost attribution")
	simulateCmd.Flags().StringVar(&simulateFlags.metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if simulateFlags.requests < 1 {
		return fmt.Errorf("--requests must be at least 1")
	}
	if simulateFlags.workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	if simulateFlags.failRate < 0 || simulateFlags.failRate > 1 {
		return fmt.Errorf("--fail-rate must be between 0 and 1")
	}
	if simulateFlags.estimateTokens < 1 {
		return fmt.Errorf("--estimate-tokens must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	govMetrics := governor.NewMetrics()
	ledMetrics := ledger.NewMetrics()
	audMetrics := audit.NewMetrics()

	// Audit trail: durable when configured, in-memory otherwise.
	var recorder audit.Recorder
	if cfg.Audit.Enabled {
		sqlRec, err := audit.NewSQLiteRecorderWithConfig(cfg.Audit.RecorderConfig())
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer sqlRec.Close()
		recorder = audit.WithMetrics(sqlRec, audMetrics)

		scheduler, err := audit.NewScheduler(recorder, cfg.Audit.SchedulerConfig())
		if err != nil {
			return fmt.Errorf("failed to create retention scheduler: %w", err)
		}
		if err := scheduler.Start(); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				logger.Debug("retention scheduler started", "next_cleanup", next)
			}
		}
	} else {
		recorder = audit.WithMetrics(audit.NewMemoryRecorder(0), audMetrics)
	}

	if simulateFlags.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: simulateFlags.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("metrics server listening", "addr", simulateFlags.metricsAddr)
	}

	gov := governor.New(governor.Config{
		Name:          "simulate",
		Limits:        cfg.Governor.Limits.GovernorLimits(),
		Backoff:       cfg.Governor.Backoff.GovernorBackoff(),
		PruneInterval: cfg.Governor.PruneInterval,
		Logger:        logger,
		Audit:         recorder,
		Metrics:       govMetrics,
	})
	defer gov.Close()

	led := ledger.New(ledger.Config{
		Name:    "simulate",
		Budget:  cfg.Ledger.Budget(),
		Pricing: cfg.Ledger.PricingTable(),
		Logger:  logger,
		Metrics: ledMetrics,
	})

	provider := &simulatedProvider{
		latency:  simulateFlags.latency,
		failRate: simulateFlags.failRate,
	}

	limit := rate.Inf
	if simulateFlags.rate > 0 {
		limit = rate.Limit(simulateFlags.rate)
	}
	pacer := rate.NewLimiter(limit, 1)
	inflight := semaphore.NewWeighted(int64(simulateFlags.workers))

	priorities := []governor.Priority{
		governor.PriorityHigh,
		governor.PriorityMedium,
		governor.PriorityLow,
	}

	var (
		submitted     int
		completed     atomic.Int64
		succeeded     atomic.Int64
		rejected      atomic.Int64
		exhausted     atomic.Int64
		budgetBlocked atomic.Int64
		canceled      atomic.Int64
		failed        atomic.Int64
	)

	logger.Info("starting simulation",
		"requests", simulateFlags.requests,
		"workers", simulateFlags.workers,
		"rate", simulateFlags.rate,
		"fail_rate", simulateFlags.failRate,
		"estimate_tokens", simulateFlags.estimateTokens)
	start := time.Now()

	progress := cli.NewReporter(nil)
	progress.Start(int64(simulateFlags.requests))

	var wg sync.WaitGroup
	for i := 0; i < simulateFlags.requests; i++ {
		if err := pacer.Wait(ctx); err != nil {
			logger.Info("interrupted, draining in-flight work")
			break
		}
		if err := inflight.Acquire(ctx, 1); err != nil {
			logger.Info("interrupted, draining in-flight work")
			break
		}
		submitted++

		priority := priorities[i%len(priorities)]
		wg.Add(1)
		go func(seq int, priority governor.Priority) {
			defer wg.Done()
			defer inflight.Release(1)
			defer func() { progress.Update(completed.Add(1)) }()

			estimate := simulateFlags.estimateTokens
			if check := led.CheckBudget(estimate); !check.Allowed {
				budgetBlocked.Add(1)
				logger.Debug("budget blocked", "seq", seq, "reason", check.Reason)
				return
			}

			result, err := governor.Run(ctx, gov, estimate, priority, func(ctx context.Context) (simulatedResult, error) {
				return provider.call(ctx, estimate)
			})
			if err != nil {
				var admission *governor.AdmissionError
				var throttled *governor.ThrottleExhaustedError
				switch {
				case errors.As(err, &admission):
					rejected.Add(1)
				case errors.As(err, &throttled):
					exhausted.Add(1)
				case errors.Is(err, context.Canceled):
					canceled.Add(1)
				default:
					failed.Add(1)
				}
				logger.Debug("request failed", "seq", seq, "priority", priority.String(), "error", err)
				return
			}

			succeeded.Add(1)
			total := result.promptTokens + result.completionTokens
			led.RecordUsage(ledger.Usage{
				PromptTokens:     result.promptTokens,
				CompletionTokens: result.completionTokens,
				TotalTokens:      total,
				EstimatedCost:    led.EstimateCost(simulateFlags.model, result.promptTokens, result.completionTokens),
			})
		}(i, priority)
	}
	wg.Wait()
	progress.Finish()
	elapsed := time.Since(start)

	printSimulationReport(gov, led, recorder, simulationCounts{
		submitted:     submitted,
		succeeded:     succeeded.Load(),
		rejected:      rejected.Load(),
		exhausted:     exhausted.Load(),
		budgetBlocked: budgetBlocked.Load(),
		canceled:      canceled.Load(),
		failed:        failed.Load(),
		elapsed:       elapsed,
	})

	return nil
}

type simulationCounts struct {
	submitted     int
	succeeded     int64
	rejected      int64
	exhausted     int64
	budgetBlocked int64
	canceled      int64
	failed        int64
	elapsed       time.Duration
}

func printSimulationReport(gov *governor.Governor, led *ledger.Ledger, rec audit.Recorder, counts simulationCounts) {
	status := gov.Status()
	budget := led.Status()

	fmt.Println()
	fmt.Printf("Simulation finished in %s\n", counts.elapsed.Round(time.Millisecond))
	fmt.Println()
	fmt.Println("Requests:")
	fmt.Printf("  submitted       %d\n", counts.submitted)
	fmt.Printf("  succeeded       %d\n", counts.succeeded)
	fmt.Printf("  rejected        %d\n", counts.rejected)
	fmt.Printf("  exhausted       %d\n", counts.exhausted)
	fmt.Printf("  budget-blocked  %d\n", counts.budgetBlocked)
	if counts.canceled > 0 {
		fmt.Printf("  canceled        %d\n", counts.canceled)
	}
	if counts.failed > 0 {
		fmt.Printf("  failed          %d\n", counts.failed)
	}

	fmt.Println()
	fmt.Println("Governor:")
	fmt.Printf("  queue length        %d\n", status.QueueLength)
	fmt.Printf("  consecutive errors  %d\n", status.ConsecutiveErrors)
	fmt.Printf("  requests (min/hr/day)  %d / %d / %d\n",
		status.Usage.RequestsLastMinute, status.Usage.RequestsLastHour, status.Usage.RequestsLastDay)
	fmt.Printf("  tokens   (min/hr/day)  %d / %d / %d\n",
		status.Usage.TokensLastMinute, status.Usage.TokensLastHour, status.Usage.TokensLastDay)

	fmt.Println()
	fmt.Println("Budget:")
	printTier("daily", budget.Daily)
	printTier("monthly", budget.Monthly)
	if budget.NearLimit {
		fmt.Println("  WARNING: budget is near its configured limit")
	}

	entries, err := rec.Query(context.Background(), audit.Filter{})
	if err != nil {
		fmt.Printf("\nAudit trail unavailable: %v\n", err)
		return
	}
	tally := make(map[audit.Event]int)
	for _, e := range entries {
		tally[e.Event]++
	}
	fmt.Println()
	fmt.Printf("Audit trail (%d entries):\n", len(entries))
	for _, ev := range []audit.Event{
		audit.EventAdmit,
		audit.EventEnqueue,
		audit.EventDispatch,
		audit.EventReject,
		audit.EventThrottle,
		audit.EventExhausted,
		audit.EventClosed,
	} {
		if n := tally[ev]; n > 0 {
			fmt.Printf("  %-10s %d\n", ev, n)
		}
	}
}

func printTier(name string, tier ledger.TierStatus) {
	if tier.Limit == 0 {
		fmt.Printf("  %-8s %d tokens (no limit)\n", name, tier.Used)
		return
	}
	fmt.Printf("  %-8s %d / %d tokens (%.1f%%)\n", name, tier.Used, tier.Limit, tier.PercentUsed)
}

// simulatedProvider stands in for an inference API. Each call sleeps for
// the configured latency (with jitter) and throttles a configurable
// fraction of calls, half of them carrying a retry-after hint.
type simulatedProvider struct {
	latency  time.Duration
	failRate float64
}

type simulatedResult struct {
	promptTokens     int
	completionTokens int
}

func (p *simulatedProvider) call(ctx context.Context, estimate int) (simulatedResult, error) {
	if p.latency > 0 {
		// 0.5x to 1.5x the configured latency.
		d := time.Duration(float64(p.latency) * (0.5 + rand.Float64()))
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return simulatedResult{}, ctx.Err()
		}
	}

	if p.failRate > 0 && rand.Float64() < p.failRate {
		var retryAfter time.Duration
		if rand.Intn(2) == 0 {
			retryAfter = time.Duration(50+rand.Intn(200)) * time.Millisecond
		}
		return simulatedResult{}, &throttle.RateLimitError{
			Provider:   "simulated",
			RetryAfter: retryAfter,
			Message:    "synthetic rate limit",
		}
	}

	completion := 0
	if estimate > 1 {
		completion = rand.Intn(estimate / 2)
	}
	return simulatedResult{promptTokens: estimate, completionTokens: completion}, nil
}
