package llm

import (
	"math"
	"testing"
)

func TestCostCalculatorExactMatch(t *testing.T) {
	c := NewCostCalculator()

	cost := c.Calculate("gpt-4o", Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000})
	if math.Abs(cost.InputCost-2.5) > 1e-9 {
		t.Errorf("input cost = %f, want 2.5", cost.InputCost)
	}
	if math.Abs(cost.OutputCost-10.0) > 1e-9 {
		t.Errorf("output cost = %f, want 10.0", cost.OutputCost)
	}
	if math.Abs(cost.TotalCost-12.5) > 1e-9 {
		t.Errorf("total cost = %f, want 12.5", cost.TotalCost)
	}
	if cost.Currency != "USD" {
		t.Errorf("currency = %s", cost.Currency)
	}
}

func TestCostCalculatorPrefixMatch(t *testing.T) {
	c := NewCostCalculator()

	// Dated model IDs resolve through the longest matching prefix
	pricing, ok := c.GetPricing("anthropic.claude-3-5-sonnet-20241022-v2:0")
	if !ok {
		t.Fatal("expected prefix match for dated claude model")
	}
	if pricing.InputPer1M != 3.0 {
		t.Errorf("InputPer1M = %f, want 3.0", pricing.InputPer1M)
	}

	// The longer prefix must win over the shorter one
	pricing, ok = c.GetPricing("gpt-4o-mini-2024-07-18")
	if !ok {
		t.Fatal("expected prefix match for gpt-4o-mini")
	}
	if pricing.Model != "gpt-4o-mini" {
		t.Errorf("matched %s, want gpt-4o-mini", pricing.Model)
	}
}

func TestCostCalculatorUnknownModel(t *testing.T) {
	c := NewCostCalculator()

	cost := c.Calculate("totally-unknown-model", Usage{PromptTokens: 1000, CompletionTokens: 1000})
	if cost.TotalCost != 0 {
		t.Errorf("unknown model cost = %f, want 0", cost.TotalCost)
	}
}

func TestCostCalculatorAddPricing(t *testing.T) {
	c := NewCostCalculator()
	c.AddPricing(ModelPricing{Model: "local/llama", InputPer1M: 0, OutputPer1M: 0})

	pricing, ok := c.GetPricing("local/llama")
	if !ok {
		t.Fatal("added pricing not found")
	}
	if pricing.InputPer1M != 0 {
		t.Errorf("InputPer1M = %f", pricing.InputPer1M)
	}
}
