package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

const roleUser = "user"

// Builder builds prompts for LLM-backed melody generators
type Builder struct {
	loader *Loader
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() *Builder {
	return &Builder{loader: NewPromptLoader()}
}

// MelodyContext is everything the model needs to know about one continuation
type MelodyContext struct {
	Primer          *models.NoteSequence
	QPM             float64
	StepsPerQuarter int
	Windows         window.Windows
}

// melodyRequest is the JSON document sent as the user message
type melodyRequest struct {
	QPM               float64            `json:"qpm"`
	StepBeats         float64            `json:"step_beats"`
	PrimerLengthBeats float64            `json:"primer_length_beats"`
	WindowLengthBeats float64            `json:"window_length_beats"`
	WindowLengthSteps int                `json:"window_length_steps"`
	PrimerNotes       []models.NoteEvent `json:"primer_notes"`
	Note              string             `json:"note,omitempty"`
}

// BuildSystemPrompt joins the system prompt and the output format instructions
func (b *Builder) BuildSystemPrompt() (string, error) {
	system, err := b.loader.GetSystemPrompt()
	if err != nil {
		return "", fmt.Errorf("failed to load system prompt: %w", err)
	}
	format, err := b.loader.GetOutputFormatInstructions()
	if err != nil {
		return "", fmt.Errorf("failed to load output format instructions: %w", err)
	}
	return strings.Join([]string{system, format}, "\n\n"), nil
}

// BuildInput renders the primer and generation window as the user message
func (b *Builder) BuildInput(mc MelodyContext) ([]map[string]any, error) {
	if mc.QPM <= 0 || mc.StepsPerQuarter <= 0 {
		return nil, fmt.Errorf("invalid melody context: qpm=%v steps_per_quarter=%d", mc.QPM, mc.StepsPerQuarter)
	}

	stepBeats := 1.0 / float64(mc.StepsPerQuarter)
	req := melodyRequest{
		QPM:               mc.QPM,
		StepBeats:         stepBeats,
		PrimerLengthBeats: float64(mc.Windows.PrimerLengthSteps) * stepBeats,
		WindowLengthBeats: float64(mc.Windows.GenerationLengthSteps) * stepBeats,
		WindowLengthSteps: mc.Windows.GenerationLengthSteps,
		PrimerNotes:       models.NoteEventsFromSequence(mc.Primer, mc.QPM),
	}
	if len(req.PrimerNotes) == 0 {
		req.PrimerNotes = []models.NoteEvent{}
		req.Note = "There is no primer. Start a new melody."
	}

	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode melody request: %w", err)
	}

	content := "Continue this melody. Fill the generation window exactly.\n\n" + string(payload)
	return []map[string]any{
		{"role": roleUser, "content": content},
	}, nil
}
