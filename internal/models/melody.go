package models

import (
	"math"
	"sort"
)

// Melody event encoding, one event per step: a pitch 0-127 starts a note,
// MelodyNoteOff ends the sounding note and MelodyNoEvent holds the
// previous state.
const (
	MelodyNoteOff = -1
	MelodyNoEvent = -2

	DefaultVelocity = 100
)

// MelodyFromSequence quantizes the notes of seq to a monophonic event list
// covering steps [startStep, endStep). Overlapping notes are cut by the next
// onset; notes sharing an onset keep the highest pitch.
func MelodyFromSequence(seq *NoteSequence, stepDuration float64, startStep, endStep int) []int {
	if endStep <= startStep {
		return []int{}
	}
	events := make([]int, endStep-startStep)
	for i := range events {
		events[i] = MelodyNoEvent
	}
	if seq.IsEmpty() || stepDuration <= 0 {
		return events
	}

	type onset struct{ start, end, pitch int }
	onsets := make([]onset, 0, len(seq.Notes))
	for _, n := range seq.Notes {
		s := int(math.Round(n.StartTime/stepDuration)) - startStep
		e := int(math.Round(n.EndTime/stepDuration)) - startStep
		if e <= s {
			e = s + 1
		}
		onsets = append(onsets, onset{start: s, end: e, pitch: n.Pitch})
	}
	sort.SliceStable(onsets, func(i, j int) bool {
		if onsets[i].start == onsets[j].start {
			return onsets[i].pitch > onsets[j].pitch
		}
		return onsets[i].start < onsets[j].start
	})

	for i, o := range onsets {
		if i > 0 && onsets[i-1].start == o.start {
			continue
		}
		if o.start < 0 || o.start >= len(events) {
			continue
		}
		events[o.start] = o.pitch

		next := len(events)
		for _, later := range onsets[i+1:] {
			if later.start > o.start {
				next = later.start
				break
			}
		}
		if o.end < next && o.end < len(events) {
			events[o.end] = MelodyNoteOff
		}
	}
	return events
}

// SequenceFromMelody converts an event list back to notes. Event i starts at
// (offsetSteps+i)*stepDuration; a note still sounding at the end is closed
// at the end of the list.
func SequenceFromMelody(events []int, stepDuration float64, offsetSteps, velocity int) *NoteSequence {
	seq := &NoteSequence{}
	open := false
	var current Note

	closeAt := func(i int) {
		if open {
			current.EndTime = float64(offsetSteps+i) * stepDuration
			seq.AddNote(current)
			open = false
		}
	}

	for i, ev := range events {
		switch {
		case ev >= 0:
			closeAt(i)
			current = Note{
				Pitch:     ev,
				Velocity:  velocity,
				StartTime: float64(offsetSteps+i) * stepDuration,
			}
			open = true
		case ev == MelodyNoteOff:
			closeAt(i)
		}
	}
	closeAt(len(events))

	return seq
}
