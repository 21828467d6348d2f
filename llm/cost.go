package llm

import (
	"sort"
	"strings"
	"sync"
)

// ModelPricing contains pricing information for a specific model
type ModelPricing struct {
	Model       string
	InputPer1M  float64 // Cost per 1M input tokens in USD
	OutputPer1M float64 // Cost per 1M output tokens in USD
}

// Cost represents the calculated cost for LLM usage
type Cost struct {
	InputCost  float64
	OutputCost float64
	TotalCost  float64
	Currency   string
}

// CostCalculator calculates the dollar cost of token usage
type CostCalculator struct {
	pricing map[string]ModelPricing
	mu      sync.RWMutex
}

// NewCostCalculator creates a calculator preloaded with common model pricing
func NewCostCalculator() *CostCalculator {
	c := &CostCalculator{pricing: make(map[string]ModelPricing)}
	c.loadDefaultPricing()
	return c
}

// Prices in USD per million tokens. Update periodically.
func (c *CostCalculator) loadDefaultPricing() {
	models := []ModelPricing{
		{Model: "gpt-4", InputPer1M: 30.0, OutputPer1M: 60.0},
		{Model: "gpt-4-turbo", InputPer1M: 10.0, OutputPer1M: 30.0},
		{Model: "gpt-4o", InputPer1M: 2.5, OutputPer1M: 10.0},
		{Model: "gpt-4o-mini", InputPer1M: 0.15, OutputPer1M: 0.60},
		{Model: "gpt-3.5-turbo", InputPer1M: 0.5, OutputPer1M: 1.5},
		{Model: "o1-mini", InputPer1M: 3.0, OutputPer1M: 12.0},

		{Model: "gemini-1.5-pro", InputPer1M: 1.25, OutputPer1M: 5.0},
		{Model: "gemini-1.5-flash", InputPer1M: 0.075, OutputPer1M: 0.3},
		{Model: "gemini-2.0-flash", InputPer1M: 0.10, OutputPer1M: 0.40},

		{Model: "anthropic.claude-3-5-sonnet", InputPer1M: 3.0, OutputPer1M: 15.0},
		{Model: "anthropic.claude-3-5-haiku", InputPer1M: 1.0, OutputPer1M: 5.0},
		{Model: "anthropic.claude-3-haiku", InputPer1M: 0.25, OutputPer1M: 1.25},
	}

	for _, pricing := range models {
		c.pricing[pricing.Model] = pricing
	}
}

// AddPricing adds or updates pricing for a model
func (c *CostCalculator) AddPricing(pricing ModelPricing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pricing[pricing.Model] = pricing
}

// GetPricing retrieves pricing for a model. Falls back to the longest
// registered prefix so dated model IDs resolve to their base pricing.
func (c *CostCalculator) GetPricing(model string) (ModelPricing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.pricing[model]; ok {
		return p, true
	}

	keys := make([]string, 0, len(c.pricing))
	for k := range c.pricing {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, key := range keys {
		if strings.HasPrefix(model, key) {
			return c.pricing[key], true
		}
	}

	return ModelPricing{}, false
}

// Calculate returns the cost for the given model and usage.
// Unknown models cost zero.
func (c *CostCalculator) Calculate(model string, usage Usage) Cost {
	pricing, ok := c.GetPricing(model)
	if !ok {
		return Cost{Currency: "USD"}
	}

	inputCost := float64(usage.PromptTokens) / 1_000_000 * pricing.InputPer1M
	outputCost := float64(usage.CompletionTokens) / 1_000_000 * pricing.OutputPer1M

	return Cost{
		InputCost:  inputCost,
		OutputCost: outputCost,
		TotalCost:  inputCost + outputCost,
		Currency:   "USD",
	}
}

// DefaultCostCalculator is the shared calculator used by instrumented providers
var DefaultCostCalculator = NewCostCalculator()
