package llm

import (
	"context"

	"github.com/Conceptual-Machines/melody-api/internal/models"
)

// Provider defines the interface for LLM providers
// All providers MUST support structured output (JSON Schema) so melodies can be parsed reliably
type Provider interface {
	// Generate continues a melody using the LLM with structured output
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model         string
	InputArray    []map[string]any
	ReasoningMode string
	SystemPrompt  string
	Temperature   *float64
	// Structured output schema - REQUIRED for reliable JSON parsing
	OutputSchema *OutputSchema
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	OutputParsed struct {
		Choices []models.MusicalChoice `json:"choices"`
	} `json:"output_parsed"`
	RawOutput string `json:"-"` // Raw JSON text output
	Usage     any    `json:"usage"`
}
