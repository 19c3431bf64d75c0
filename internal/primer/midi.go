package primer

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/melody-api/internal/models"
)

type noteKey struct {
	track   int
	channel uint8
	key     uint8
}

type openNote struct {
	start    float64
	velocity uint8
}

// ReadMIDI reads notes and tempos from a standard MIDI file. TotalTime is
// the end of the last note.
func ReadMIDI(path string) (*models.NoteSequence, error) {
	seq := &models.NoteSequence{}
	open := make(map[noteKey]openNote)

	closeNote := func(k noteKey, end float64) {
		on, ok := open[k]
		if !ok {
			return
		}
		delete(open, k)
		if end > on.start {
			seq.AddNote(models.Note{Pitch: int(k.key), Velocity: int(on.velocity), StartTime: on.start, EndTime: end})
		}
	}

	var channel, key, velocity uint8
	var bpm, last float64
	err := smf.ReadTracks(path).Do(func(ev smf.TrackEvent) {
		at := float64(ev.AbsMicroSeconds) / 1e6
		msg := midi.Message(ev.Message)

		switch {
		case ev.Message.GetMetaTempo(&bpm):
			if n := len(seq.Tempos); n == 0 || seq.Tempos[n-1].QPM != bpm {
				seq.Tempos = append(seq.Tempos, models.Tempo{Time: at, QPM: bpm})
			}
		case msg.GetNoteStart(&channel, &key, &velocity):
			k := noteKey{ev.TrackNo, channel, key}
			closeNote(k, at)
			open[k] = openNote{start: at, velocity: velocity}
		case msg.GetNoteEnd(&channel, &key):
			closeNote(noteKey{ev.TrackNo, channel, key}, at)
		}
		last = max(last, at)
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("read midi: %w", err)
	}

	// notes still sounding at the end of the file end with the last event
	for k := range open {
		closeNote(k, last)
	}
	seq.SortNotes()
	seq.RecomputeTotalTime()
	return seq, nil
}
