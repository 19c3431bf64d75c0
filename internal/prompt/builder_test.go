package prompt

import (
	"strings"
	"testing"

	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

func TestNewPromptBuilder(t *testing.T) {
	builder := NewPromptBuilder()
	if builder == nil {
		t.Fatal("NewPromptBuilder() returned nil")
		return
	}
	if builder.loader == nil {
		t.Fatal("NewPromptBuilder() created builder with nil loader")
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	builder := NewPromptBuilder()
	prompt, err := builder.BuildSystemPrompt()
	if err != nil {
		t.Fatalf("BuildSystemPrompt() returned error: %v", err)
	}

	if !strings.Contains(prompt, "melody continuation engine") {
		t.Error("BuildSystemPrompt() does not contain system prompt content")
	}
	if !strings.Contains(prompt, "OUTPUT FORMAT") {
		t.Error("BuildSystemPrompt() does not contain output format instructions")
	}
}

func TestBuildInput(t *testing.T) {
	w, err := window.Compute(1.0, 4, 120, 16)
	if err != nil {
		t.Fatalf("window.Compute() returned error: %v", err)
	}

	primer := &models.NoteSequence{}
	primer.AddNote(models.Note{Pitch: 60, Velocity: 100, StartTime: 0, EndTime: 0.5})
	primer.AddNote(models.Note{Pitch: 62, Velocity: 100, StartTime: 0.5, EndTime: 1.0})

	builder := NewPromptBuilder()
	input, err := builder.BuildInput(MelodyContext{Primer: primer, QPM: 120, StepsPerQuarter: 4, Windows: w})
	if err != nil {
		t.Fatalf("BuildInput() returned error: %v", err)
	}

	if len(input) != 1 {
		t.Fatalf("BuildInput() returned %d messages, want 1", len(input))
	}
	if input[0]["role"] != "user" {
		t.Errorf("role = %v, want user", input[0]["role"])
	}

	content, _ := input[0]["content"].(string)
	for _, want := range []string{`"window_length_steps": 8`, `"window_length_beats": 2`, `"midiNoteNumber": 62`} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %s:\n%s", want, content)
		}
	}
}

func TestBuildInputEmptyPrimer(t *testing.T) {
	w, err := window.Compute(0, 4, 120, 16)
	if err != nil {
		t.Fatalf("window.Compute() returned error: %v", err)
	}

	input, err := NewPromptBuilder().BuildInput(MelodyContext{QPM: 120, StepsPerQuarter: 4, Windows: w})
	if err != nil {
		t.Fatalf("BuildInput() returned error: %v", err)
	}

	content, _ := input[0]["content"].(string)
	if !strings.Contains(content, "There is no primer") {
		t.Error("empty primer should be called out")
	}
	if !strings.Contains(content, `"primer_notes": []`) {
		t.Error("empty primer should encode as an empty list")
	}
}

func TestBuildInputRejectsInvalidContext(t *testing.T) {
	if _, err := NewPromptBuilder().BuildInput(MelodyContext{QPM: 0, StepsPerQuarter: 4}); err == nil {
		t.Error("expected error for zero qpm")
	}
}
