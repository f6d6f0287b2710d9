package ledger

import (
	"math"
	"strings"
	"sync"
)

// charsPerTokenDefault is the assumed characters-per-token ratio when no
// model-specific ratio applies. Four characters per token is a reasonable
// approximation for English prose across current model families.
const charsPerTokenDefault = 4

// EstimateTokens approximates the token count of text as ceil(len/4). The
// estimate is deterministic and cheap; it feeds pre-flight budget and rate
// checks, never final accounting.
func EstimateTokens(text string) int {
	return (len(text) + charsPerTokenDefault - 1) / charsPerTokenDefault
}

// Estimator estimates tokens with model-specific characters-per-token
// ratios. Lookup tries an exact model match, then a model-family prefix
// match (so "gpt-4" covers "gpt-4-0613"), then falls back to the default
// ratio of 4.
type Estimator struct {
	mu     sync.RWMutex
	ratios map[string]float64
}

// NewEstimator creates an estimator with per-model ratios. A nil map is
// allowed; every model then uses the default ratio.
func NewEstimator(ratios map[string]float64) *Estimator {
	e := &Estimator{ratios: make(map[string]float64, len(ratios))}
	for model, ratio := range ratios {
		e.ratios[model] = ratio
	}
	return e
}

// EstimateForModel approximates the token count of text for a model as
// ceil(len/ratio).
func (e *Estimator) EstimateForModel(text, model string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / e.ratioFor(model)))
}

// ratioFor returns the characters-per-token ratio for a model.
func (e *Estimator) ratioFor(model string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if ratio, ok := e.ratios[model]; ok && ratio > 0 {
		return ratio
	}
	for pattern, ratio := range e.ratios {
		if ratio > 0 && strings.HasPrefix(model, pattern) {
			return ratio
		}
	}
	return charsPerTokenDefault
}

// UpdateRatios replaces the per-model ratios (hot-reload support).
func (e *Estimator) UpdateRatios(ratios map[string]float64) {
	next := make(map[string]float64, len(ratios))
	for model, ratio := range ratios {
		next[model] = ratio
	}

	e.mu.Lock()
	e.ratios = next
	e.mu.Unlock()
}
