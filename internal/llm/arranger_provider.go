package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	magdaarranger "github.com/Conceptual-Machines/magda-agents-go/agents/arranger"
	magdaconfig "github.com/Conceptual-Machines/magda-agents-go/config"
)

const providerNameArranger = "arranger"

type arrangeFunc func(ctx context.Context, model string, input []map[string]any, reasoningMode string) ([]byte, any, error)

// ArrangerProvider runs the magda arranger agent. The agent carries its own
// system prompt and output schema, whose choices match MusicalOutput.
type ArrangerProvider struct {
	arrange arrangeFunc
}

// NewArrangerProvider creates a provider backed by the arranger agent
func NewArrangerProvider(openaiAPIKey, geminiAPIKey, mcpServerURL string) *ArrangerProvider {
	svc := magdaarranger.NewGenerationService(&magdaconfig.Config{
		OpenAIAPIKey: openaiAPIKey,
		GeminiAPIKey: geminiAPIKey,
		MCPServerURL: mcpServerURL,
	})

	return &ArrangerProvider{
		arrange: func(ctx context.Context, model string, input []map[string]any, reasoningMode string) ([]byte, any, error) {
			result, err := svc.Generate(ctx, model, input, reasoningMode)
			if err != nil {
				return nil, nil, err
			}
			data, err := json.Marshal(result.OutputParsed)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to encode arranger output: %w", err)
			}
			return data, result.Usage, nil
		},
	}
}

// Name returns the provider name
func (p *ArrangerProvider) Name() string {
	return providerNameArranger
}

// Generate forwards the user messages to the arranger agent. SystemPrompt,
// Temperature and OutputSchema are owned by the agent and ignored here.
func (p *ArrangerProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	reasoningMode := request.ReasoningMode
	if reasoningMode == "" {
		reasoningMode = "medium"
	}

	raw, usage, err := p.arrange(ctx, request.Model, request.InputArray, reasoningMode)
	if err != nil {
		return nil, fmt.Errorf("arranger generation failed: %w", err)
	}

	resp := &GenerationResponse{RawOutput: string(raw), Usage: usage}
	if err := json.Unmarshal(raw, &resp.OutputParsed); err != nil {
		log.Printf("❌ Failed to parse arranger output: %s", truncate(string(raw), maxOutputTrunc))
		return nil, fmt.Errorf("failed to parse arranger output: %w", err)
	}

	log.Printf("🎼 Arranger returned %d choices", len(resp.OutputParsed.Choices))
	return resp, nil
}
