package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/melody-api/internal/llm"
	"github.com/Conceptual-Machines/melody-api/internal/models"
)

type fakeProvider struct {
	request *llm.GenerationRequest
	choices []models.MusicalChoice
	err     error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	f.request = request
	if f.err != nil {
		return nil, f.err
	}
	resp := &llm.GenerationResponse{}
	resp.OutputParsed.Choices = f.choices
	return resp, nil
}

func newFakeLLMGenerator(p *fakeProvider) *LLMGenerator {
	return newLLMGenerator(Details{Name: LLMFamily, ID: "fake"}, "gpt-5-mini", func(context.Context) (llm.Provider, error) {
		return p, nil
	})
}

func TestLLMGeneratorGenerate(t *testing.T) {
	p := &fakeProvider{choices: []models.MusicalChoice{{
		Description: "rising line",
		Notes: []models.NoteEvent{
			{MidiNoteNumber: 65, Velocity: 90, StartBeats: 0, DurationBeats: 1},
			{MidiNoteNumber: 67, Velocity: 0, StartBeats: 1, DurationBeats: 1},
			{MidiNoteNumber: 200, Velocity: 90, StartBeats: 2, DurationBeats: 1},  // out of range
			{MidiNoteNumber: 69, Velocity: 90, StartBeats: 4.5, DurationBeats: 2}, // cut at the end
			{MidiNoteNumber: 71, Velocity: 90, StartBeats: 6, DurationBeats: 1},   // after the window
		},
	}}}
	primer := testPrimer()

	out, err := newFakeLLMGenerator(p).Generate(context.Background(), primer, testOptions(1.5, 4.0))
	require.NoError(t, err)

	require.Len(t, out.Notes, 6)
	assert.Equal(t, primer.Notes, out.Notes[:3])
	assert.Equal(t, models.Note{Pitch: 65, Velocity: 90, StartTime: 1.5, EndTime: 2.0}, out.Notes[3])
	assert.Equal(t, models.DefaultVelocity, out.Notes[4].Velocity)
	assert.Equal(t, 69, out.Notes[5].Pitch)
	assert.Equal(t, 4.0, out.Notes[5].EndTime)
	assert.Equal(t, 4.0, out.TotalTime)

	require.NotNil(t, p.request)
	assert.Equal(t, "gpt-5-mini", p.request.Model)
	assert.Equal(t, 1.0, *p.request.Temperature)
	assert.Equal(t, llm.MelodyOutputSchemaName, p.request.OutputSchema.Name)
	assert.Contains(t, p.request.SystemPrompt, "OUTPUT FORMAT")

	content, ok := p.request.InputArray[0]["content"].(string)
	require.True(t, ok)
	payload := content[strings.Index(content, "{"):]
	var req map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	assert.Equal(t, float64(20), req["window_length_steps"])
}

func TestLLMGeneratorErrors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		boom := errors.New("rate limited")
		_, err := newFakeLLMGenerator(&fakeProvider{err: boom}).Generate(context.Background(), testPrimer(), testOptions(1.5, 4.0))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no choices", func(t *testing.T) {
		_, err := newFakeLLMGenerator(&fakeProvider{}).Generate(context.Background(), testPrimer(), testOptions(1.5, 4.0))
		assert.ErrorIs(t, err, ErrEmptyOutput)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		gen := newLLMGenerator(Details{ID: "fake"}, "gpt-5-mini", func(context.Context) (llm.Provider, error) {
			return nil, errors.New("openai API key not configured")
		})
		_, err := gen.Generate(context.Background(), testPrimer(), testOptions(1.5, 4.0))
		assert.ErrorContains(t, err, "API key not configured")
	})
}

func TestLLMGeneratorFactoryDetails(t *testing.T) {
	newLLM := NewLLMGeneratorFactory(testConfig())

	gen, err := newLLM(GeminiID, "gemini-2.5-flash")(context.Background())
	require.NoError(t, err)

	d := gen.Details()
	assert.Equal(t, LLMFamily, d.Name)
	assert.Equal(t, GeminiID, d.ID)
	assert.Contains(t, d.Description, "gemini-2.5-flash")
	assert.False(t, d.NeedsBoundaryEpsilon)
}
