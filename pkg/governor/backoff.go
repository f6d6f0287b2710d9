package governor

import (
	"math"
	"math/rand"
	"time"
)

// backoffDelay computes the delay before the next throttle retry.
//
// The base delay is InitialDelay * Multiplier^streak capped at MaxDelay,
// where streak is the consecutive-error count before this failure. Jitter
// of +/- JitterFraction is applied to the capped base. A provider
// retry-after hint stretches the delay but never shrinks it.
func backoffDelay(cfg BackoffConfig, streak int, retryAfter time.Duration) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(streak))
	if maxDelay := float64(cfg.MaxDelay); delay > maxDelay {
		delay = maxDelay
	}

	if cfg.JitterFraction > 0 {
		jitter := (rand.Float64()*2 - 1) * cfg.JitterFraction
		delay *= 1 + jitter
	}

	d := time.Duration(delay)
	if d < 0 {
		d = 0
	}
	if retryAfter > d {
		d = retryAfter
	}
	return d
}

// applyBackoffDefaults fills zero fields with the DefaultBackoffConfig
// values.
func applyBackoffDefaults(cfg BackoffConfig) BackoffConfig {
	defaults := DefaultBackoffConfig()
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaults.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = defaults.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return cfg
}
