// Package throttle classifies provider errors as rate-limit signals.
//
// # Overview
//
// Work units submitted to the governor may fail because the upstream
// inference provider is throttling the caller (HTTP 429, overload
// responses, explicit retry-after hints). The governor retries those
// failures with backoff; every other failure propagates immediately.
// This package supplies the contract that separates the two:
//
//   - RateLimitError: the canonical throttle error a work unit can return
//   - Classifier: the pluggable decision function the governor consumes
//   - Classify: the default classifier, matching *RateLimitError
//   - ClassifyOpenAI: an adapter for the go-openai client's error types
//   - Chain: combines classifiers so one governor can front several providers
//
// # Usage
//
//	gov := governor.New(governor.Config{
//	    Classifier: throttle.Chain(throttle.Classify, throttle.ClassifyOpenAI),
//	})
//
// A classifier never mutates the error; it only reports whether the error
// is a throttle signal and how long the provider asked the caller to wait
// (zero when no hint was given).
package throttle
