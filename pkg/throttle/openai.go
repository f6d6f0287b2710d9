package throttle

import (
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ClassifyOpenAI classifies errors returned by the go-openai client.
// HTTP 429 responses and 503 overload responses are treated as throttle
// signals; the client does not expose response headers, so no retry-after
// hint is available and the governor falls back to computed backoff.
func ClassifyOpenAI(err error) (time.Duration, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return 0, throttledStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return 0, throttledStatus(reqErr.HTTPStatusCode)
	}

	return 0, false
}

// throttledStatus reports whether an HTTP status code signals throttling.
func throttledStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}
