package provider

// ModelPricing defines per-1k token pricing in USD.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty"`
}

// PriceTable maps a model name to its pricing entry.
type PriceTable map[string]ModelPricing

// DefaultPriceTable returns the built-in static price table. Entries can
// be overridden from the models config file.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		"gpt-5.2-instant":           {PromptPer1K: 0.0002, CompletionPer1K: 0.0008},
		"gpt-5.2-thinking":          {PromptPer1K: 0.002, CompletionPer1K: 0.008},
		"gpt-5.2-pro":               {PromptPer1K: 0.015, CompletionPer1K: 0.06},
		"claude-sonnet-4-20250514":  {PromptPer1K: 0.003, CompletionPer1K: 0.015},
		"claude-opus-4-20250514":    {PromptPer1K: 0.015, CompletionPer1K: 0.075},
		"gemini-2.0-pro":            {PromptPer1K: 0.00125, CompletionPer1K: 0.005},
		"gemini-2.0-flash":          {PromptPer1K: 0.0001, CompletionPer1K: 0.0004},
	}
}

// Cost computes the USD cost of a call from the table. Unknown models fall
// back to the cheapest configured tier so cost accounting never undercounts
// to zero for a paid model.
func (t PriceTable) Cost(model string, tokensIn, tokensOut int) float64 {
	entry, ok := t[model]
	if !ok {
		entry = t.cheapest()
	}
	return (float64(tokensIn)/1000.0)*entry.PromptPer1K +
		(float64(tokensOut)/1000.0)*entry.CompletionPer1K
}

func (t PriceTable) cheapest() ModelPricing {
	var best ModelPricing
	first := true
	for _, entry := range t {
		if first || entry.PromptPer1K+entry.CompletionPer1K < best.PromptPer1K+best.CompletionPer1K {
			best = entry
			first = false
		}
	}
	return best
}

// EstimateTokens approximates a token count for providers that omit usage.
func EstimateTokens(text string) int {
	return len(text) / 4
}
