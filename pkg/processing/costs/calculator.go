package costs

import (
	"sync"

	"sentinel-hq/sentinel/pkg/providers"
)

// ModelPricing holds USD prices per million tokens for one model.
type ModelPricing struct {
	// InputPerMillion is the price per 1M prompt tokens
	InputPerMillion float64

	// OutputPerMillion is the price per 1M completion tokens
	OutputPerMillion float64
}

// Cost is the computed cost of one request.
type Cost struct {
	// Model is the model the cost was computed for
	Model string `json:"model"`

	// PromptCost is the USD cost of the prompt tokens
	PromptCost float64 `json:"prompt_cost"`

	// CompletionCost is the USD cost of the completion tokens
	CompletionCost float64 `json:"completion_cost"`

	// TotalCost is prompt plus completion
	TotalCost float64 `json:"total_cost"`

	// Known reports whether the model had a pricing entry; unknown
	// models cost zero rather than failing the request.
	Known bool `json:"known"`
}

// defaultPricing covers the commonly routed models. Overridable per
// calculator.
var defaultPricing = map[string]ModelPricing{
	"gpt-4o":                     {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":                {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// Calculator computes per-request costs from token usage and a pricing
// table. Safe for concurrent use; the table can be swapped at runtime
// for config reloads.
type Calculator struct {
	mu      sync.RWMutex
	pricing map[string]ModelPricing

	totalsMu sync.Mutex
	totals   map[string]float64 // model → accumulated USD
}

// NewCalculator creates a calculator with the default pricing table,
// with overrides merged on top.
func NewCalculator(overrides map[string]ModelPricing) *Calculator {
	pricing := make(map[string]ModelPricing, len(defaultPricing)+len(overrides))
	for model, p := range defaultPricing {
		pricing[model] = p
	}
	for model, p := range overrides {
		pricing[model] = p
	}
	return &Calculator{
		pricing: pricing,
		totals:  make(map[string]float64),
	}
}

// Calculate computes the cost of one completed request and accumulates
// it into the running totals. Unknown models cost zero.
func (c *Calculator) Calculate(model string, usage providers.TokenUsage) Cost {
	c.mu.RLock()
	pricing, known := c.pricing[model]
	c.mu.RUnlock()

	cost := Cost{Model: model, Known: known}
	if known {
		cost.PromptCost = float64(usage.PromptTokens) / 1_000_000 * pricing.InputPerMillion
		cost.CompletionCost = float64(usage.CompletionTokens) / 1_000_000 * pricing.OutputPerMillion
		cost.TotalCost = cost.PromptCost + cost.CompletionCost
	}

	c.totalsMu.Lock()
	c.totals[model] += cost.TotalCost
	c.totalsMu.Unlock()
	return cost
}

// Totals returns a copy of the accumulated USD cost per model.
func (c *Calculator) Totals() map[string]float64 {
	c.totalsMu.Lock()
	defer c.totalsMu.Unlock()
	out := make(map[string]float64, len(c.totals))
	for model, total := range c.totals {
		out[model] = total
	}
	return out
}

// SetPricing replaces the pricing table, for config hot-reload.
func (c *Calculator) SetPricing(pricing map[string]ModelPricing) {
	next := make(map[string]ModelPricing, len(pricing))
	for model, p := range pricing {
		next[model] = p
	}
	c.mu.Lock()
	c.pricing = next
	c.mu.Unlock()
}
