// Package primer loads the seed sequence a generator continues.
package primer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

var (
	// ErrUnsupportedPrimer is returned for primer files of an unknown type
	ErrUnsupportedPrimer = errors.New("unsupported primer")
	// ErrInvalidPrimer is returned when a primer is missing or cannot be parsed
	ErrInvalidPrimer = errors.New("invalid primer")
)

// Loader resolves primer names. Relative file names are looked up in Dir.
// Melody lists are laid out on the step grid of QPM and StepsPerQuarter.
type Loader struct {
	Dir             string
	QPM             float64
	StepsPerQuarter int
	// DirOnly restricts file lookup to Dir, for untrusted names
	DirOnly bool
}

// NewLoader creates a loader
func NewLoader(dir string, qpm float64, stepsPerQuarter int) *Loader {
	return &Loader{Dir: dir, QPM: qpm, StepsPerQuarter: stepsPerQuarter}
}

// Load returns the primer named by name. It accepts:
//   - "" for an empty primer
//   - inline DSL: note(pitch=C4, start=0, duration=0.5); ...
//   - inline melody list: [60, -2, -1, 62]
//   - a .mid, .midi, .json or .dsl file
func (l *Loader) Load(name string) (*models.NoteSequence, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return &models.NoteSequence{}, nil
	case isInlineDSL(name):
		return ParseDSL(name)
	case strings.HasPrefix(name, "["):
		return l.ParseMelody(name)
	}

	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	var seq *models.NoteSequence
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi":
		seq, err = ReadMIDI(path)
	case ".json":
		seq, err = readJSON(path)
	case ".dsl":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			seq, err = ParseDSL(string(data))
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPrimer, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrInvalidPrimer, name, err)
	}

	log.Printf("🎵 Loaded primer %s: %d notes, %.2fs", name, len(seq.Notes), seq.TotalTime)
	return seq, nil
}

// ParseMelody reads a JSON list of melody events, one per step: a pitch
// starts a note, -1 ends it and -2 holds.
func (l *Loader) ParseMelody(text string) (*models.NoteSequence, error) {
	var events []int
	if err := json.Unmarshal([]byte(text), &events); err != nil {
		return nil, fmt.Errorf("%w: parse melody list: %w", ErrInvalidPrimer, err)
	}
	for _, ev := range events {
		if ev < models.MelodyNoEvent || ev > 127 {
			return nil, fmt.Errorf("%w: parse melody list: invalid event %d", ErrInvalidPrimer, ev)
		}
	}

	step := window.StepDuration(l.QPM, l.StepsPerQuarter)
	seq := models.SequenceFromMelody(events, step, 0, models.DefaultVelocity)
	seq.Tempos = []models.Tempo{{Time: 0, QPM: l.QPM}}
	if end := float64(len(events)) * step; end > seq.TotalTime {
		seq.TotalTime = end
	}
	return seq, nil
}

// resolve looks in Dir before the working directory. With DirOnly set,
// only plain file names inside Dir are accepted.
func (l *Loader) resolve(name string) (string, error) {
	var candidates []string
	if !filepath.IsAbs(name) && l.Dir != "" {
		candidates = append(candidates, filepath.Join(l.Dir, name))
	}
	if l.DirOnly {
		if filepath.Base(name) != name || strings.HasPrefix(name, "..") {
			return "", fmt.Errorf("%w: %q is not a primer file name", ErrInvalidPrimer, name)
		}
	} else {
		candidates = append(candidates, name)
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: file not found: %s", ErrInvalidPrimer, name)
}

func isInlineDSL(s string) bool {
	return strings.HasPrefix(s, "note(") || strings.HasPrefix(s, "tempo(")
}

func readJSON(path string) (*models.NoteSequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seq models.NoteSequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parse note sequence: %w", err)
	}
	seq.SortNotes()
	if seq.TotalTime == 0 {
		seq.RecomputeTotalTime()
	}
	return &seq, nil
}
