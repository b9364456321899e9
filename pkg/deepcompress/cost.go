package deepcompress

import "github.com/deepcompress/deepcompress/internal/domain"

// modelPricing maps a model to its input price in USD per million tokens.
// Used when the configuration does not set an explicit price.
var modelPricing = map[string]float64{
	"anthropic/claude-3.5-haiku":  0.80,
	"anthropic/claude-sonnet-4":   3.00,
	"openai/gpt-4o":               2.50,
	"openai/gpt-4o-mini":          0.15,
	"google/gemini-2.5-flash":     0.30,
	"meta-llama/llama-3.3-70b":    0.12,
	"deepseek/deepseek-chat-v3.1": 0.27,
}

const defaultCostPerMTok = 3.0

// CostPerMTok resolves the input token price for a model in USD per million
// tokens.
func CostPerMTok(model string) float64 {
	if price, ok := modelPricing[model]; ok {
		return price
	}
	return defaultCostPerMTok
}

// CostSavedUSD estimates the money saved by feeding the compressed text to
// an LLM instead of the uncompressed baseline, at the given input price.
func CostSavedUSD(doc *domain.CompressedDocument, costPerMTok float64) float64 {
	if costPerMTok <= 0 {
		costPerMTok = defaultCostPerMTok
	}
	return float64(doc.TokensSaved()) * costPerMTok / 1_000_000
}
