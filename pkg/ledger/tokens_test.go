package ledger

import (
	"strings"
	"testing"
)

// ============================================================================
// Token Estimation Tests
// ============================================================================

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single char", text: "a", want: 1},
		{name: "exact multiple", text: "abcdefgh", want: 2},
		{name: "rounds up", text: "abcdefghi", want: 3},
		{name: "hello world", text: "Hello world", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateTokens_AlwaysBelowLength(t *testing.T) {
	for _, text := range []string{"Hello world", strings.Repeat("word ", 100), "x"} {
		got := EstimateTokens(text)
		if got <= 0 {
			t.Errorf("EstimateTokens(%q) = %d, want positive", text, got)
		}
		if got >= len(text) && len(text) > 1 {
			t.Errorf("EstimateTokens(%q) = %d, want below input length %d", text, got, len(text))
		}
	}
}

// ============================================================================
// Model-Aware Estimator Tests
// ============================================================================

func TestEstimator_ExactMatch(t *testing.T) {
	e := NewEstimator(map[string]float64{"gpt-4o": 3.8})

	// ceil(38 / 3.8) = 10
	text := strings.Repeat("a", 38)
	if got := e.EstimateForModel(text, "gpt-4o"); got != 10 {
		t.Errorf("EstimateForModel() = %d, want 10", got)
	}
}

func TestEstimator_PrefixMatch(t *testing.T) {
	e := NewEstimator(map[string]float64{"claude-3": 3.5})

	// ceil(35 / 3.5) = 10
	text := strings.Repeat("a", 35)
	if got := e.EstimateForModel(text, "claude-3-5-sonnet-20241022"); got != 10 {
		t.Errorf("EstimateForModel() with prefix match = %d, want 10", got)
	}
}

func TestEstimator_DefaultRatio(t *testing.T) {
	e := NewEstimator(nil)

	if got := e.EstimateForModel("abcdefgh", "unknown-model"); got != 2 {
		t.Errorf("EstimateForModel() with default ratio = %d, want 2", got)
	}
	if got := e.EstimateForModel("", "unknown-model"); got != 0 {
		t.Errorf("EstimateForModel(\"\") = %d, want 0", got)
	}
}

func TestEstimator_UpdateRatios(t *testing.T) {
	e := NewEstimator(map[string]float64{"gpt-4o": 4})

	e.UpdateRatios(map[string]float64{"gpt-4o": 2})

	// ceil(8 / 2) = 4 under the new ratio
	if got := e.EstimateForModel("abcdefgh", "gpt-4o"); got != 4 {
		t.Errorf("EstimateForModel() after UpdateRatios = %d, want 4", got)
	}
}
