package models

// NoteEvent represents a single musical note with timing in quarter-note beats.
// This is the shape LLM-backed generators return.
type NoteEvent struct {
	MidiNoteNumber int     `json:"midiNoteNumber"`
	Velocity       int     `json:"velocity"`
	StartBeats     float64 `json:"startBeats"`
	DurationBeats  float64 `json:"durationBeats"`
}

// MusicalChoice represents a complete musical sequence choice
type MusicalChoice struct {
	Description string      `json:"description"`
	Notes       []NoteEvent `json:"notes"`
}

// MusicalOutput represents the complete structured output from the LLM
type MusicalOutput struct {
	Choices []MusicalChoice `json:"choices"`
}

// NoteEventsFromSequence converts seconds-based notes to beat-based events at qpm
func NoteEventsFromSequence(seq *NoteSequence, qpm float64) []NoteEvent {
	if seq == nil {
		return nil
	}
	events := make([]NoteEvent, 0, len(seq.Notes))
	for _, n := range seq.Notes {
		events = append(events, NoteEvent{
			MidiNoteNumber: n.Pitch,
			Velocity:       n.Velocity,
			StartBeats:     SecondsToBeats(n.StartTime, qpm),
			DurationBeats:  SecondsToBeats(n.EndTime-n.StartTime, qpm),
		})
	}
	return events
}

// NoteFromEvent converts a beat-based event to a seconds-based note at qpm,
// shifted by offset seconds
func NoteFromEvent(ev NoteEvent, qpm, offset float64) Note {
	start := offset + BeatsToSeconds(ev.StartBeats, qpm)
	return Note{
		Pitch:     ev.MidiNoteNumber,
		Velocity:  ev.Velocity,
		StartTime: start,
		EndTime:   start + BeatsToSeconds(ev.DurationBeats, qpm),
	}
}
