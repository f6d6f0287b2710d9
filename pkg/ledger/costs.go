package ledger

import (
	"strings"
	"sync"
)

// Price is the USD cost per 1000 tokens for one model.
type Price struct {
	// Prompt is the cost per 1000 prompt tokens.
	Prompt float64

	// Completion is the cost per 1000 completion tokens.
	Completion float64
}

// PricingTable maps model names to prices. Lookup tries an exact match,
// then a model prefix match (so "gpt-4" covers "gpt-4-0613"), then the
// "default" entry. It is thread-safe and supports hot-reload of prices.
type PricingTable struct {
	mu     sync.RWMutex
	prices map[string]Price
}

// NewPricingTable creates a pricing table from per-model prices. The
// "default" key, when present, prices models with no other match.
func NewPricingTable(prices map[string]Price) *PricingTable {
	p := &PricingTable{prices: make(map[string]Price, len(prices))}
	for model, price := range prices {
		p.prices[model] = price
	}
	return p
}

// DefaultPricingTable returns a table seeded with published rates for
// common models. Override with configured pricing for anything current;
// the default entry keeps unknown models from costing zero.
func DefaultPricingTable() *PricingTable {
	return NewPricingTable(map[string]Price{
		"gpt-4o":            {Prompt: 0.0025, Completion: 0.01},
		"gpt-4o-mini":       {Prompt: 0.00015, Completion: 0.0006},
		"gpt-4":             {Prompt: 0.03, Completion: 0.06},
		"gpt-3.5-turbo":     {Prompt: 0.0005, Completion: 0.0015},
		"claude-3-5-sonnet": {Prompt: 0.003, Completion: 0.015},
		"claude-3-5-haiku":  {Prompt: 0.0008, Completion: 0.004},
		"claude-3-opus":     {Prompt: 0.015, Completion: 0.075},
		"default":           {Prompt: 0.002, Completion: 0.006},
	})
}

// Lookup returns the price for a model: exact match, then model prefix
// match, then the "default" entry, then zero.
func (p *PricingTable) Lookup(model string) Price {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if price, ok := p.prices[model]; ok {
		return price
	}
	// Longest matching prefix wins so "gpt-4o" beats "gpt-4" for
	// versioned names like gpt-4o-2024-08-06.
	var (
		best    Price
		bestLen = -1
	)
	for pattern, price := range p.prices {
		if pattern != "default" && strings.HasPrefix(model, pattern) && len(pattern) > bestLen {
			best = price
			bestLen = len(pattern)
		}
	}
	if bestLen >= 0 {
		return best
	}
	return p.prices["default"]
}

// Cost returns the estimated USD cost of a call.
func (p *PricingTable) Cost(model string, promptTokens, completionTokens int) float64 {
	price := p.Lookup(model)
	return tokenCost(promptTokens, price.Prompt) + tokenCost(completionTokens, price.Completion)
}

// Update replaces the table's prices (hot-reload support).
func (p *PricingTable) Update(prices map[string]Price) {
	next := make(map[string]Price, len(prices))
	for model, price := range prices {
		next[model] = price
	}

	p.mu.Lock()
	p.prices = next
	p.mu.Unlock()
}

// tokenCost converts a token count and a per-1K rate into USD.
func tokenCost(tokens int, costPer1K float64) float64 {
	if tokens <= 0 {
		return 0.0
	}
	return (float64(tokens) / 1000.0) * costPer1K
}
