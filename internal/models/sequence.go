package models

import (
	"sort"
)

const secondsPerMinute = 60.0

// Note is a single pitched event. Times are absolute seconds.
type Note struct {
	Pitch     int     `json:"pitch"`
	Velocity  int     `json:"velocity"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Tempo is a tempo declaration at an absolute time
type Tempo struct {
	Time float64 `json:"time"`
	QPM  float64 `json:"qpm"`
}

// NoteSequence is the structured note sequence exchanged with generators,
// primer sources and artifact writers.
type NoteSequence struct {
	Notes     []Note  `json:"notes"`
	Tempos    []Tempo `json:"tempos,omitempty"`
	TotalTime float64 `json:"total_time"`
}

// Clone returns a deep copy of the sequence
func (s *NoteSequence) Clone() *NoteSequence {
	if s == nil {
		return &NoteSequence{}
	}
	out := &NoteSequence{TotalTime: s.TotalTime}
	out.Notes = append([]Note(nil), s.Notes...)
	out.Tempos = append([]Tempo(nil), s.Tempos...)
	return out
}

// AddNote appends a note and extends TotalTime when needed
func (s *NoteSequence) AddNote(n Note) {
	s.Notes = append(s.Notes, n)
	if n.EndTime > s.TotalTime {
		s.TotalTime = n.EndTime
	}
}

// IsEmpty reports whether the sequence carries no notes
func (s *NoteSequence) IsEmpty() bool {
	return s == nil || len(s.Notes) == 0
}

// SortNotes orders notes by start time, then pitch
func (s *NoteSequence) SortNotes() {
	sort.SliceStable(s.Notes, func(i, j int) bool {
		if s.Notes[i].StartTime == s.Notes[j].StartTime {
			return s.Notes[i].Pitch < s.Notes[j].Pitch
		}
		return s.Notes[i].StartTime < s.Notes[j].StartTime
	})
}

// NotesBetween returns the notes whose start time falls in [start, end)
func (s *NoteSequence) NotesBetween(start, end float64) []Note {
	var out []Note
	for _, n := range s.Notes {
		if n.StartTime >= start && n.StartTime < end {
			out = append(out, n)
		}
	}
	return out
}

// RecomputeTotalTime sets TotalTime to the latest note end
func (s *NoteSequence) RecomputeTotalTime() {
	total := 0.0
	for _, n := range s.Notes {
		if n.EndTime > total {
			total = n.EndTime
		}
	}
	s.TotalTime = total
}

// BeatsToSeconds converts a position in quarter-note beats to seconds at qpm
func BeatsToSeconds(beats, qpm float64) float64 {
	return beats * secondsPerMinute / qpm
}

// SecondsToBeats converts seconds to quarter-note beats at qpm
func SecondsToBeats(seconds, qpm float64) float64 {
	return seconds * qpm / secondsPerMinute
}
