package artifacts

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/melody-api/internal/models"
)

const (
	ticksPerQuarter = 480
	defaultQPM      = 120.0
	melodyChannel   = 0
)

// MIDIWriter writes sequences as standard MIDI files
type MIDIWriter struct{}

// NewMIDIWriter creates a MIDI writer
func NewMIDIWriter() *MIDIWriter {
	return &MIDIWriter{}
}

// Write encodes seq to path. The file is closed on every return path.
func (w *MIDIWriter) Write(seq *models.NoteSequence, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create midi file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close midi file: %w", cerr)
		}
	}()

	if err := EncodeMIDI(seq, f); err != nil {
		return err
	}
	return nil
}

type midiEvent struct {
	tick     uint32
	off      bool
	pitch    uint8
	velocity uint8
}

// EncodeMIDI writes seq as a format 1 file: a tempo track and one note track.
// Times are converted at the first tempo of the sequence.
func EncodeMIDI(seq *models.NoteSequence, out io.Writer) error {
	if seq == nil {
		seq = &models.NoteSequence{}
	}
	qpm := defaultQPM
	if len(seq.Tempos) > 0 && seq.Tempos[0].QPM > 0 {
		qpm = seq.Tempos[0].QPM
	}

	toTicks := func(seconds float64) uint32 {
		return uint32(math.Round(models.SecondsToBeats(seconds, qpm) * ticksPerQuarter))
	}

	events := make([]midiEvent, 0, 2*len(seq.Notes))
	for _, n := range seq.Notes {
		if n.Pitch < 0 || n.Pitch > 127 || n.EndTime <= n.StartTime {
			continue
		}
		vel := min(max(n.Velocity, 1), 127)
		events = append(events,
			midiEvent{tick: toTicks(n.StartTime), pitch: uint8(n.Pitch), velocity: uint8(vel)},
			midiEvent{tick: toTicks(n.EndTime), off: true, pitch: uint8(n.Pitch)},
		)
	}
	// note-offs first so repeated pitches retrigger cleanly
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tempoTrack smf.Track
	tempoTrack.Add(0, smf.MetaTempo(qpm))
	tempoTrack.Close(0)

	var noteTrack smf.Track
	var last uint32
	for _, ev := range events {
		delta := ev.tick - last
		if ev.off {
			noteTrack.Add(delta, midi.NoteOff(melodyChannel, ev.pitch))
		} else {
			noteTrack.Add(delta, midi.NoteOn(melodyChannel, ev.pitch, ev.velocity))
		}
		last = ev.tick
	}
	endTick := toTicks(seq.TotalTime)
	var tail uint32
	if endTick > last {
		tail = endTick - last
	}
	noteTrack.Close(tail)

	if err := s.Add(tempoTrack); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}
	if err := s.Add(noteTrack); err != nil {
		return fmt.Errorf("add note track: %w", err)
	}
	if _, err := s.WriteTo(out); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}
