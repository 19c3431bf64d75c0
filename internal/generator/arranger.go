package generator

import (
	"context"

	"github.com/Conceptual-Machines/melody-api/internal/config"
	"github.com/Conceptual-Machines/melody-api/internal/llm"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

const (
	ArrangerID     = "arranger"
	ArrangerFamily = "arranger_sequence_generator"
)

// NewArrangerGenerator runs continuations through the arranger agent
func NewArrangerGenerator(cfg *config.Config) *LLMGenerator {
	details := Details{
		Name:            ArrangerFamily,
		ID:              ArrangerID,
		Description:     "Melody continuation by the arranger agent",
		StepsPerQuarter: window.DefaultStepsPerQuarter,
	}
	arranger := llm.NewArrangerProvider(cfg.OpenAIAPIKey, cfg.GeminiAPIKey, cfg.MCPServerURL)
	return newLLMGenerator(details, cfg.OpenAIModel, func(context.Context) (llm.Provider, error) {
		return arranger, nil
	})
}
