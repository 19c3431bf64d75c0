package primer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/grammar-school-go/gs"

	"github.com/Conceptual-Machines/melody-api/internal/llm"
	"github.com/Conceptual-Machines/melody-api/internal/models"
)

const defaultNoteDuration = 0.5

var argSeparator = regexp.MustCompile(`\s*,\s*`)

var noteOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// MelodyDSL collects the notes and tempos of one DSL program
type MelodyDSL struct {
	seq *models.NoteSequence
}

// ParseDSL executes melody DSL code and returns the resulting sequence
func ParseDSL(code string) (*models.NoteSequence, error) {
	code = normalizeDSL(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty DSL code", ErrInvalidPrimer)
	}

	dsl := &MelodyDSL{seq: &models.NoteSequence{}}
	engine, err := gs.NewEngine(llm.GetMelodyDSLGrammar(), dsl, gs.NewLarkParser())
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	if err := engine.Execute(context.Background(), code); err != nil {
		return nil, fmt.Errorf("%w: failed to execute DSL: %w", ErrInvalidPrimer, err)
	}

	dsl.seq.SortNotes()
	return dsl.seq, nil
}

// normalizeDSL puts one call per statement separated by "; " so files may
// use one call per line
func normalizeDSL(code string) string {
	fields := strings.FieldsFunc(code, func(r rune) bool { return r == ';' || r == '\n' || r == '\r' })
	calls := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" && !strings.HasPrefix(f, "#") {
			calls = append(calls, argSeparator.ReplaceAllString(f, ", "))
		}
	}
	return strings.Join(calls, "; ")
}

// Note handles note() calls
func (d *MelodyDSL) Note(args gs.Args) error {
	pitch := -1
	if v, ok := args["pitch"]; ok {
		switch v.Kind {
		case gs.ValueNumber:
			pitch = int(v.Num)
		case gs.ValueString:
			p, err := PitchFromName(v.Str)
			if err != nil {
				return err
			}
			pitch = p
		}
	}
	if pitch < 0 || pitch > 127 {
		return fmt.Errorf("note: pitch must be 0-127 or a note name")
	}

	start := 0.0
	if v, ok := args["start"]; ok && v.Kind == gs.ValueNumber {
		start = v.Num
	}
	duration := defaultNoteDuration
	if v, ok := args["duration"]; ok && v.Kind == gs.ValueNumber {
		duration = v.Num
	}
	if start < 0 || duration <= 0 {
		return fmt.Errorf("note: start must be >= 0 and duration > 0")
	}
	velocity := models.DefaultVelocity
	if v, ok := args["velocity"]; ok && v.Kind == gs.ValueNumber {
		velocity = min(max(int(v.Num), 1), 127)
	}

	d.seq.AddNote(models.Note{Pitch: pitch, Velocity: velocity, StartTime: start, EndTime: start + duration})
	return nil
}

// Tempo handles tempo() calls
func (d *MelodyDSL) Tempo(args gs.Args) error {
	v, ok := args["qpm"]
	if !ok || v.Kind != gs.ValueNumber || v.Num <= 0 {
		return fmt.Errorf("tempo: qpm must be > 0")
	}
	at := 0.0
	if t, ok := args["time"]; ok && t.Kind == gs.ValueNumber {
		at = t.Num
	}
	d.seq.Tempos = append(d.seq.Tempos, models.Tempo{Time: at, QPM: v.Num})
	return nil
}

// PitchFromName converts scientific pitch notation to a MIDI number, C4 = 60
func PitchFromName(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	base, ok := noteOffsets[strings.ToUpper(name[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note name %q", name)
	}

	rest := name[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	pitch := (octave+1)*12 + base
	if pitch < 0 || pitch > 127 {
		return 0, fmt.Errorf("note %q out of MIDI range", name)
	}
	return pitch, nil
}
