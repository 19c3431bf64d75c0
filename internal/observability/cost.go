package observability

import (
	"strconv"
	"strings"

	"github.com/openai/openai-go/responses"
	"google.golang.org/genai"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	// GPT-5 pricing
	gpt5InputPrice  = 0.00125
	gpt5OutputPrice = 0.01

	// GPT-5-mini pricing
	gpt5MiniInputPrice  = 0.00025
	gpt5MiniOutputPrice = 0.002

	// GPT-4.1-mini pricing
	gpt41MiniInputPrice  = 0.0004
	gpt41MiniOutputPrice = 0.0016

	// GPT-4o-mini pricing
	gpt4oMiniInputPrice  = 0.00015
	gpt4oMiniOutputPrice = 0.0006

	// Gemini 2.5 Flash pricing
	gemini25FlashInputPrice  = 0.0003
	gemini25FlashOutputPrice = 0.0025

	// Gemini 2.5 Pro pricing
	gemini25ProInputPrice  = 0.00125
	gemini25ProOutputPrice = 0.01

	defaultPricingModel = "gpt-5-mini"
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for all models
var PricingTable = map[string]ModelPricing{
	"gpt-5":            {InputPricePer1K: gpt5InputPrice, OutputPricePer1K: gpt5OutputPrice},
	"gpt-5-mini":       {InputPricePer1K: gpt5MiniInputPrice, OutputPricePer1K: gpt5MiniOutputPrice},
	"gpt-4.1-mini":     {InputPricePer1K: gpt41MiniInputPrice, OutputPricePer1K: gpt41MiniOutputPrice},
	"gpt-4o-mini":      {InputPricePer1K: gpt4oMiniInputPrice, OutputPricePer1K: gpt4oMiniOutputPrice},
	"gemini-2.5-flash": {InputPricePer1K: gemini25FlashInputPrice, OutputPricePer1K: gemini25FlashOutputPrice},
	"gemini-2.5-pro":   {InputPricePer1K: gemini25ProInputPrice, OutputPricePer1K: gemini25ProOutputPrice},
}

// TokenUsage is provider-neutral token accounting
type TokenUsage struct {
	Input     int64 `json:"input_tokens"`
	Output    int64 `json:"output_tokens"`
	Reasoning int64 `json:"reasoning_tokens"`
	Total     int64 `json:"total_tokens"`
}

// UsageFromResponse extracts token counts from an OpenAI or Gemini usage value.
// Unknown types yield zero usage.
func UsageFromResponse(usage any) TokenUsage {
	switch u := usage.(type) {
	case responses.ResponseUsage:
		return TokenUsage{
			Input:     u.InputTokens,
			Output:    u.OutputTokens,
			Reasoning: u.OutputTokensDetails.ReasoningTokens,
			Total:     u.TotalTokens,
		}
	case *responses.ResponseUsage:
		if u == nil {
			return TokenUsage{}
		}
		return UsageFromResponse(*u)
	case *genai.GenerateContentResponseUsageMetadata:
		if u == nil {
			return TokenUsage{}
		}
		return TokenUsage{
			Input:     int64(u.PromptTokenCount),
			Output:    int64(u.CandidatesTokenCount),
			Reasoning: int64(u.ThoughtsTokenCount),
			Total:     int64(u.TotalTokenCount),
		}
	case map[string]any:
		return TokenUsage{
			Input:  toInt64(u["input_tokens"]),
			Output: toInt64(u["output_tokens"]),
			Total:  toInt64(u["total_tokens"]),
		}
	}
	return TokenUsage{}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

// CalculateCost calculates the cost in USD for a model call
func CalculateCost(model string, usage TokenUsage) float64 {
	pricing, exists := PricingTable[strings.ToLower(model)]
	if !exists {
		pricing = PricingTable[defaultPricingModel]
	}

	inputCost := (float64(usage.Input) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(usage.Output) / tokensPerKilo) * pricing.OutputPricePer1K

	// Reasoning tokens are billed at the input rate
	reasoningCost := (float64(usage.Reasoning) / tokensPerKilo) * pricing.InputPricePer1K

	return inputCost + outputCost + reasoningCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + formatFloat(cost, costFormatPrecision)
}

// formatFloat formats a float with specified precision using strconv
func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'f', precision, 64)
}
