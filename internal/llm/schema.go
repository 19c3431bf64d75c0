package llm

const (
	// MIDI note number constraints
	midiNoteNumberMin = 0
	midiNoteNumberMax = 127

	// Velocity constraints
	velocityMin     = 1
	velocityMax     = 127
	velocityDefault = 100

	// Duration constraints
	durationBeatsMin = 0.01

	// MelodyOutputSchemaName is the schema name sent with structured output requests
	MelodyOutputSchemaName = "melody_continuation"
)

// GetMelodyOutputSchema returns the JSON schema for a melody continuation.
// Beats are quarter notes counted from the start of the generation window.
func GetMelodyOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"choices": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": map[string]any{"type": "string"},
						"notes": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"midiNoteNumber": map[string]any{"type": "integer", "minimum": midiNoteNumberMin, "maximum": midiNoteNumberMax},
									"velocity":       map[string]any{"type": "integer", "minimum": velocityMin, "maximum": velocityMax, "default": velocityDefault},
									"startBeats":     map[string]any{"type": "number", "minimum": 0},
									"durationBeats":  map[string]any{"type": "number", "minimum": durationBeatsMin},
								},
								"required":             []string{"midiNoteNumber", "velocity", "startBeats", "durationBeats"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []string{"description", "notes"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"choices"},
		"additionalProperties": false,
	}
}

// MelodyOutputSchema wraps GetMelodyOutputSchema for a GenerationRequest
func MelodyOutputSchema() *OutputSchema {
	return &OutputSchema{
		Name:        MelodyOutputSchemaName,
		Description: "Monophonic melody continuing the primer inside the generation window",
		Schema:      GetMelodyOutputSchema(),
	}
}
