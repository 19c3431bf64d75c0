package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Conceptual-Machines/melody-api/internal/config"
	"github.com/Conceptual-Machines/melody-api/internal/llm"
	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/observability"
	"github.com/Conceptual-Machines/melody-api/internal/prompt"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

const (
	OpenAIID  = "openai"
	GeminiID  = "gemini"
	LLMFamily = "llm_sequence_generator"

	defaultReasoningMode = "low"
)

// ErrEmptyOutput is returned when a model answers without any choice
var ErrEmptyOutput = errors.New("model returned no melody")

type providerFunc func(ctx context.Context) (llm.Provider, error)

// LLMGenerator asks a language model for a continuation with structured output
type LLMGenerator struct {
	details       Details
	model         string
	reasoningMode string
	provider      providerFunc
	builder       *prompt.Builder
}

// NewLLMGeneratorFactory returns a constructor of generator factories for the
// configured providers. Providers are created on first use.
func NewLLMGeneratorFactory(cfg *config.Config) func(id, model string) Factory {
	providers := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)

	return func(id, model string) Factory {
		return func(context.Context) (Generator, error) {
			details := Details{
				Name:            LLMFamily,
				ID:              id,
				Description:     fmt.Sprintf("Melody continuation by %s (%s)", id, model),
				StepsPerQuarter: window.DefaultStepsPerQuarter,
			}
			return newLLMGenerator(details, model, func(ctx context.Context) (llm.Provider, error) {
				return providers.GetProvider(ctx, model, id)
			}), nil
		}
	}
}

func newLLMGenerator(details Details, model string, provider providerFunc) *LLMGenerator {
	return &LLMGenerator{
		details:       details,
		model:         model,
		reasoningMode: defaultReasoningMode,
		provider:      provider,
		builder:       prompt.NewPromptBuilder(),
	}
}

// Details describes the generator
func (g *LLMGenerator) Details() Details {
	return g.details
}

// Generate prompts the model with the primer and the section length and
// appends the first returned choice. Seed is not supported by every provider
// and is ignored.
func (g *LLMGenerator) Generate(
	ctx context.Context, primer *models.NoteSequence, opts *Options,
) (*models.NoteSequence, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	section := opts.GenerateSections[0]
	step := window.StepDuration(opts.QPM, opts.StepsPerQuarter)
	windows := window.Windows{
		StepDuration:          step,
		PrimerEnd:             section.Start,
		GenerationStart:       section.Start,
		GenerationEnd:         section.End,
		PrimerLengthSteps:     int(math.Round(section.Start / step)),
		GenerationLengthSteps: int(math.Round((section.End - section.Start) / step)),
	}

	systemPrompt, err := g.builder.BuildSystemPrompt()
	if err != nil {
		return nil, err
	}
	input, err := g.builder.BuildInput(prompt.MelodyContext{
		Primer:          primer,
		QPM:             opts.QPM,
		StepsPerQuarter: opts.StepsPerQuarter,
		Windows:         windows,
	})
	if err != nil {
		return nil, err
	}

	provider, err := g.provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	metadata := map[string]interface{}{
		"generator":    g.details.ID,
		"window_steps": windows.GenerationLengthSteps,
		"qpm":          opts.QPM,
	}
	trace := observability.GetClient().StartTrace(ctx, "melody-continuation", metadata)
	defer trace.Finish()
	span := trace.Generation(g.details.ID, metadata)
	defer span.Finish()

	temperature := opts.Temperature
	start := time.Now()
	resp, err := provider.Generate(ctx, &llm.GenerationRequest{
		Model:         g.model,
		InputArray:    input,
		ReasoningMode: g.reasoningMode,
		SystemPrompt:  systemPrompt,
		Temperature:   &temperature,
		OutputSchema:  llm.MelodyOutputSchema(),
	})
	if err != nil {
		span.SetLevel("ERROR")
		return nil, err
	}
	span.LogResult(g.model, input, resp.RawOutput, observability.UsageFromResponse(resp.Usage), metadata)

	if len(resp.OutputParsed.Choices) == 0 {
		return nil, ErrEmptyOutput
	}

	continuation := sequenceFromChoice(resp.OutputParsed.Choices[0], opts.QPM, section.Start)
	out := appendContinuation(primer, continuation, section)
	if out.TotalTime < section.End {
		out.TotalTime = section.End
	}

	log.Printf("🎼 %s generated %d notes in %s", g.details.ID, len(continuation.Notes), time.Since(start))
	return out, nil
}

// sequenceFromChoice converts beat-based events to notes starting at offset.
// Events outside the MIDI range or without duration are dropped.
func sequenceFromChoice(choice models.MusicalChoice, qpm, offset float64) *models.NoteSequence {
	seq := &models.NoteSequence{}
	for _, ev := range choice.Notes {
		if ev.MidiNoteNumber < 0 || ev.MidiNoteNumber > 127 || ev.DurationBeats <= 0 || ev.StartBeats < 0 {
			continue
		}
		switch {
		case ev.Velocity <= 0:
			ev.Velocity = models.DefaultVelocity
		case ev.Velocity > 127:
			ev.Velocity = 127
		}
		seq.AddNote(models.NoteFromEvent(ev, qpm, offset))
	}
	seq.SortNotes()
	return seq
}
