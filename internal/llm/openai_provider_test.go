package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.Name())
	assert.NotNil(t, provider.client)
}

func TestOpenAIProvider_BuildRequestParams(t *testing.T) {
	provider := NewOpenAIProvider("test-key")
	temperature := 0.7

	tests := []struct {
		name    string
		request *GenerationRequest
		checks  func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest)
	}{
		{
			name: "basic request with user message",
			request: &GenerationRequest{
				Model:         "gpt-5-mini",
				ReasoningMode: "low",
				SystemPrompt:  "test prompt",
				InputArray: []map[string]any{
					{"role": "user", "content": "test"},
				},
			},
			checks: func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.Equal(t, "gpt-5-mini", string(params.Model))
				assert.Len(t, params.Input.OfInputItemList, 1)
				assert.NotEmpty(t, params.Reasoning.Effort)
			},
		},
		{
			name: "invalid input items are skipped",
			request: &GenerationRequest{
				Model: "gpt-4.1-mini",
				InputArray: []map[string]any{
					{"role": "developer", "content": "context"},
					{"role": "user"},
				},
			},
			checks: func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.Len(t, params.Input.OfInputItemList, 1)
			},
		},
		{
			name: "temperature only for non reasoning models",
			request: &GenerationRequest{
				Model:       "gpt-4.1-mini",
				Temperature: &temperature,
				InputArray: []map[string]any{
					{"role": "user", "content": "test"},
				},
			},
			checks: func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.True(t, params.Temperature.Valid())
				assert.Empty(t, params.Reasoning.Effort)
			},
		},
		{
			name: "request with output schema",
			request: &GenerationRequest{
				Model:        "gpt-5-mini",
				SystemPrompt: "test prompt",
				InputArray: []map[string]any{
					{"role": "user", "content": "test"},
				},
				OutputSchema: MelodyOutputSchema(),
			},
			checks: func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.NotNil(t, params.Text.Format.OfJSONSchema)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checks(t, provider, tt.request)
		})
	}
}

func TestOpenAIProvider_ReasoningModeMapping(t *testing.T) {
	for _, mode := range []string{"minimal", "min", "low", "medium", "med", "high", "none", ""} {
		t.Run(mode, func(t *testing.T) {
			assert.NotEmpty(t, reasoningEffort(mode))
		})
	}
}

func TestOpenAIProvider_GenerateParsesChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"model": "gpt-4.1-mini",
			"status": "completed",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{
					"type": "output_text",
					"annotations": [],
					"text": "{\"choices\":[{\"description\":\"rising\",\"notes\":[{\"midiNoteNumber\":60,\"velocity\":90,\"startBeats\":0,\"durationBeats\":1}]}]}"
				}]
			}],
			"usage": {"input_tokens": 10, "output_tokens": 20, "total_tokens": 30,
				"input_tokens_details": {"cached_tokens": 0},
				"output_tokens_details": {"reasoning_tokens": 0}}
		}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	resp, err := provider.Generate(context.Background(), &GenerationRequest{
		Model:        "gpt-4.1-mini",
		SystemPrompt: "continue the melody",
		InputArray:   []map[string]any{{"role": "user", "content": "primer"}},
		OutputSchema: MelodyOutputSchema(),
	})
	require.NoError(t, err)
	require.Len(t, resp.OutputParsed.Choices, 1)
	assert.Equal(t, "rising", resp.OutputParsed.Choices[0].Description)
	require.Len(t, resp.OutputParsed.Choices[0].Notes, 1)
	assert.Equal(t, 60, resp.OutputParsed.Choices[0].Notes[0].MidiNoteNumber)
}

func TestOpenAIProvider_GenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	_, err := provider.Generate(context.Background(), &GenerationRequest{
		Model:      "gpt-4.1-mini",
		InputArray: []map[string]any{{"role": "user", "content": "primer"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai request failed")
}
