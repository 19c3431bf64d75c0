package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMelodyFromSequence(t *testing.T) {
	seq := &NoteSequence{}
	seq.AddNote(Note{Pitch: 60, StartTime: 0, EndTime: 0.25})
	seq.AddNote(Note{Pitch: 62, StartTime: 0.5, EndTime: 1.0})
	seq.AddNote(Note{Pitch: 64, StartTime: 0.75, EndTime: 1.0}) // cuts 62

	events := MelodyFromSequence(seq, 0.125, 0, 10)

	assert.Equal(t, []int{60, -2, -1, -2, 62, -2, 64, -2, -1, -2}, events)
}

func TestMelodyFromSequenceKeepsHighestOnset(t *testing.T) {
	seq := &NoteSequence{Notes: []Note{
		{Pitch: 60, StartTime: 0, EndTime: 0.25},
		{Pitch: 67, StartTime: 0, EndTime: 0.25},
	}}

	events := MelodyFromSequence(seq, 0.125, 0, 3)
	assert.Equal(t, []int{67, -2, -1}, events)
}

func TestMelodyFromSequenceEmpty(t *testing.T) {
	assert.Equal(t, []int{-2, -2}, MelodyFromSequence(nil, 0.125, 0, 2))
	assert.Empty(t, MelodyFromSequence(nil, 0.125, 4, 4))
}

func TestSequenceFromMelody(t *testing.T) {
	events := []int{60, -2, -1, 62, 64, -2}
	seq := SequenceFromMelody(events, 0.125, 8, DefaultVelocity)

	require.Len(t, seq.Notes, 3)
	assert.Equal(t, Note{Pitch: 60, Velocity: 100, StartTime: 1.0, EndTime: 1.25}, seq.Notes[0])
	assert.Equal(t, Note{Pitch: 62, Velocity: 100, StartTime: 1.375, EndTime: 1.5}, seq.Notes[1])
	assert.Equal(t, Note{Pitch: 64, Velocity: 100, StartTime: 1.5, EndTime: 1.75}, seq.Notes[2])
	assert.Equal(t, 1.75, seq.TotalTime)
}

func TestMelodyRoundTrip(t *testing.T) {
	events := []int{60, -2, 62, -1, -2, 65, -2, -2}
	seq := SequenceFromMelody(events, 0.25, 0, 90)
	assert.Equal(t, events[:len(events)-2], MelodyFromSequence(seq, 0.25, 0, len(events))[:len(events)-2])
}
