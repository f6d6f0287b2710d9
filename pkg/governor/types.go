package governor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"turnstile-ai/turnstile/pkg/audit"
	"turnstile-ai/turnstile/pkg/throttle"
)

// Priority orders queued work. Higher priorities always dispatch before
// lower ones; work at the same priority dispatches in submission order.
type Priority int

const (
	// PriorityLow is for background work that can wait behind everything else.
	PriorityLow Priority = iota

	// PriorityMedium is the default for interactive work.
	PriorityMedium

	// PriorityHigh is for work that must jump ahead of the queue.
	PriorityHigh
)

// numPriorities is the number of queue lanes.
const numPriorities = 3

// String returns the lowercase priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// valid reports whether the priority is one of the three defined levels.
func (p Priority) valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// ParsePriority parses a priority name ("high", "medium", "low").
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// LimitConfig contains the six admission ceilings.
//
// A zero ceiling admits nothing: every ceiling is checked, and a request
// (or its token estimate) that cannot fit under a ceiling even with an
// empty window is rejected permanently. "Unlimited" is expressed with a
// deliberately large value, so limits must be configured on purpose.
type LimitConfig struct {
	// RequestsPerMinute limits dispatched requests per trailing minute.
	RequestsPerMinute int

	// RequestsPerHour limits dispatched requests per trailing hour.
	RequestsPerHour int

	// RequestsPerDay limits dispatched requests per trailing day.
	RequestsPerDay int

	// TokensPerMinute limits tokens (prompt+completion estimate) per trailing minute.
	TokensPerMinute int

	// TokensPerHour limits tokens per trailing hour.
	TokensPerHour int

	// TokensPerDay limits tokens per trailing day.
	TokensPerDay int
}

// requestLimits returns the request ceilings indexed by tier.
func (c LimitConfig) requestLimits() [numTiers]int {
	return [numTiers]int{c.RequestsPerMinute, c.RequestsPerHour, c.RequestsPerDay}
}

// tokenLimits returns the token ceilings indexed by tier.
func (c LimitConfig) tokenLimits() [numTiers]int {
	return [numTiers]int{c.TokensPerMinute, c.TokensPerHour, c.TokensPerDay}
}

// BackoffConfig governs retry escalation for provider throttle errors.
type BackoffConfig struct {
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay before jitter.
	MaxDelay time.Duration

	// Multiplier is the exponential escalation factor.
	Multiplier float64

	// JitterFraction adds +/- this fraction of random jitter to each delay.
	JitterFraction float64

	// MaxRetries is how many times a throttled work unit is retried before
	// the error propagates.
	MaxRetries int
}

// DefaultBackoffConfig returns the backoff defaults: 1s initial delay
// doubling up to 60s with 25% jitter and 3 retries.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay:   time.Second,
		MaxDelay:       60 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
		MaxRetries:     3,
	}
}

// UsageSnapshot reports the current rolling-window counts across all six
// ceilings, reconstructed from the dispatch history at query time.
type UsageSnapshot struct {
	RequestsLastMinute int
	RequestsLastHour   int
	RequestsLastDay    int
	TokensLastMinute   int
	TokensLastHour     int
	TokensLastDay      int
}

// CheckResult contains the result of an admission check.
type CheckResult struct {
	// Allowed indicates if the request is permitted now.
	Allowed bool

	// Reason explains why the request was rejected (if Allowed=false).
	Reason string

	// Tier names the violated window ("minute", "hour", or "day").
	Tier string

	// Limit is the configured ceiling of the violated tier.
	Limit int

	// Wait is how long until the oldest record in the violated window
	// expires. When several tiers are violated the smallest wait is
	// reported.
	Wait time.Duration

	// Permanent indicates that waiting cannot help: the request (or its
	// token estimate) exceeds a ceiling outright.
	Permanent bool

	// Usage is the window snapshot the decision was made against.
	Usage UsageSnapshot
}

// Status is a read-only snapshot of the governor.
type Status struct {
	// QueueLength is the number of queued, not-yet-dispatched items.
	QueueLength int

	// Processing indicates whether the dispatch loop is running.
	Processing bool

	// ConsecutiveErrors is the current provider throttle streak. It is
	// reset by the next successful dispatch.
	ConsecutiveErrors int

	// Usage is the current rolling-window snapshot.
	Usage UsageSnapshot
}

// WorkFunc is a unit of work submitted to the governor, typically a call
// to the wrapped inference API. The context is the one passed to Submit.
type WorkFunc func(ctx context.Context) (any, error)

// Config configures a Governor.
type Config struct {
	// Name identifies the governed resource in logs and metric labels.
	// Defaults to "default".
	Name string

	// Limits are the admission ceilings.
	Limits LimitConfig

	// Backoff governs throttle retries. Zero delays and a sub-one
	// multiplier take the DefaultBackoffConfig values; zero jitter and
	// zero retries are respected as configured.
	Backoff BackoffConfig

	// Classifier decides which work unit errors are provider throttle
	// signals. Defaults to throttle.Classify.
	Classifier throttle.Classifier

	// PruneInterval is how often records older than the largest window are
	// dropped. Defaults to one minute.
	PruneInterval time.Duration

	// Logger is the structured logger. Defaults to slog.Default() scoped
	// with component=governor.
	Logger *slog.Logger

	// Audit, when set, receives an entry for every admission decision.
	// Recording is best-effort and never fails the governed operation.
	Audit audit.Recorder

	// Metrics, when set, receives Prometheus metrics. Create one Metrics
	// per process and share it across governors.
	Metrics *Metrics
}
