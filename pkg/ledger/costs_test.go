package ledger

import (
	"math"
	"testing"
)

// ============================================================================
// Pricing Lookup Tests
// ============================================================================

func TestPricingTable_Lookup(t *testing.T) {
	table := DefaultPricingTable()

	tests := []struct {
		name       string
		model      string
		wantPrompt float64
	}{
		{name: "exact match", model: "gpt-4o", wantPrompt: 0.0025},
		{name: "prefix match", model: "gpt-4o-2024-08-06", wantPrompt: 0.0025},
		{name: "claude prefix", model: "claude-3-5-sonnet-20241022", wantPrompt: 0.003},
		{name: "unknown falls back to default", model: "llama-3-70b", wantPrompt: 0.002},
		{name: "empty model uses default", model: "", wantPrompt: 0.002},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := table.Lookup(tt.model)
			if price.Prompt != tt.wantPrompt {
				t.Errorf("Lookup(%q).Prompt = %v, want %v", tt.model, price.Prompt, tt.wantPrompt)
			}
		})
	}
}

func TestPricingTable_PrefixPrefersLongestSpecificEntry(t *testing.T) {
	table := NewPricingTable(map[string]Price{
		"gpt-4":   {Prompt: 0.03, Completion: 0.06},
		"gpt-4o":  {Prompt: 0.0025, Completion: 0.01},
		"default": {Prompt: 0.002, Completion: 0.006},
	})

	// gpt-4o-mini-2024 matches both gpt-4 and gpt-4o; the longer prefix wins.
	price := table.Lookup("gpt-4o-mini-2024")
	if price.Prompt != 0.0025 {
		t.Errorf("Lookup() chose prefix with Prompt = %v, want 0.0025", price.Prompt)
	}
}

// ============================================================================
// Cost Calculation Tests
// ============================================================================

func TestPricingTable_Cost(t *testing.T) {
	table := NewPricingTable(map[string]Price{
		"gpt-4o":  {Prompt: 0.0025, Completion: 0.01},
		"default": {Prompt: 0.002, Completion: 0.006},
	})

	tests := []struct {
		name       string
		model      string
		prompt     int
		completion int
		want       float64
	}{
		{name: "round thousands", model: "gpt-4o", prompt: 1000, completion: 1000, want: 0.0125},
		{name: "fractional thousands", model: "gpt-4o", prompt: 500, completion: 250, want: 0.00375},
		{name: "zero tokens", model: "gpt-4o", prompt: 0, completion: 0, want: 0},
		{name: "negative clamped", model: "gpt-4o", prompt: -100, completion: 1000, want: 0.01},
		{name: "default pricing", model: "mystery", prompt: 1000, completion: 0, want: 0.002},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Cost(tt.model, tt.prompt, tt.completion)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost(%q, %d, %d) = %v, want %v", tt.model, tt.prompt, tt.completion, got, tt.want)
			}
		})
	}
}

func TestPricingTable_Update(t *testing.T) {
	table := NewPricingTable(map[string]Price{
		"default": {Prompt: 0.002, Completion: 0.006},
	})

	table.Update(map[string]Price{
		"gpt-4o": {Prompt: 0.001, Completion: 0.004},
	})

	if price := table.Lookup("gpt-4o"); price.Prompt != 0.001 {
		t.Errorf("Lookup() after Update = %v, want 0.001", price.Prompt)
	}
	// Entries not named in the update survive.
	if price := table.Lookup("other"); price.Prompt != 0.002 {
		t.Errorf("Lookup() default after Update = %v, want 0.002", price.Prompt)
	}
}
