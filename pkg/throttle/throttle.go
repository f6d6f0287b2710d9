package throttle

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RateLimitError represents a rate limit rejection from a provider.
// Work units return it (or wrap it) to tell the governor that the call
// failed because the caller is being throttled, not because the work is
// broken.
type RateLimitError struct {
	// Provider is the name of the provider that throttled the request.
	Provider string

	// RetryAfter is the wait the provider asked for (zero if none given).
	RetryAfter time.Duration

	// Message is the error message from the provider.
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// Classifier decides whether an error from a work unit is a provider
// throttle signal. It returns the provider's retry-after hint (zero when
// the provider gave none) and whether the error should be retried with
// backoff. Classifiers must not mutate the error.
type Classifier func(err error) (retryAfter time.Duration, throttled bool)

// Classify is the default classifier. It matches *RateLimitError anywhere
// in the error chain and reports its retry-after hint.
func Classify(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

// Chain combines classifiers into one. The first classifier that reports
// the error as throttled wins; if none do, the error is not a throttle
// signal.
func Chain(classifiers ...Classifier) Classifier {
	return func(err error) (time.Duration, bool) {
		for _, classify := range classifiers {
			if classify == nil {
				continue
			}
			if retryAfter, throttled := classify(err); throttled {
				return retryAfter, true
			}
		}
		return 0, false
	}
}

// ParseRetryAfter parses a Retry-After header value. It accepts both the
// delay-seconds form ("120") and the HTTP-date form ("Mon, 02 Jan 2006
// 15:04:05 GMT"). It returns zero for values it cannot parse or dates in
// the past.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	// Try delay-seconds first
	var seconds int
	if _, err := fmt.Sscanf(value, "%d", &seconds); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	// Fall back to HTTP-date
	if t, err := http.ParseTime(value); err == nil {
		if wait := time.Until(t); wait > 0 {
			return wait
		}
	}

	return 0
}
