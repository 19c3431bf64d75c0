package prompt

import (
	"strings"
	"testing"
)

func TestNewPromptLoader(t *testing.T) {
	loader := NewPromptLoader()
	if loader == nil {
		t.Fatal("NewPromptLoader() returned nil")
	}
}

func TestGetSystemPrompt(t *testing.T) {
	loader := NewPromptLoader()
	content, err := loader.GetSystemPrompt()

	if err != nil {
		t.Fatalf("GetSystemPrompt() returned error: %v", err)
	}

	if content == "" {
		t.Error("GetSystemPrompt() returned empty string")
	}

	if !strings.Contains(content, "music composition assistant") {
		t.Error("GetSystemPrompt() does not contain expected content")
	}

	if strings.HasPrefix(content, "\n") || strings.HasSuffix(content, "\n") {
		t.Error("GetSystemPrompt() is not trimmed")
	}
}

func TestGetOutputFormatInstructions(t *testing.T) {
	loader := NewPromptLoader()
	content, err := loader.GetOutputFormatInstructions()

	if err != nil {
		t.Fatalf("GetOutputFormatInstructions() returned error: %v", err)
	}

	if !strings.Contains(content, "startBeats") {
		t.Error("GetOutputFormatInstructions() does not describe note timing")
	}
}
