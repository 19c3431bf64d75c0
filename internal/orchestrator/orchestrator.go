// Package orchestrator runs one primer extension end to end: resolve the
// tempo, compute the generation window, call the generator once and persist
// the result as a MIDI file and an HTML plot.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Conceptual-Machines/melody-api/internal/artifacts"
	"github.com/Conceptual-Machines/melody-api/internal/generator"
	"github.com/Conceptual-Machines/melody-api/internal/logger"
	"github.com/Conceptual-Machines/melody-api/internal/metrics"
	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

// MultipleTempoError is returned when a primer declares more than one tempo
type MultipleTempoError struct {
	Count int
}

func (e *MultipleTempoError) Error() string {
	return fmt.Sprintf("primer declares %d tempos; only a single tempo is supported", e.Count)
}

// SamplingParams are passed through to the generator unchanged
type SamplingParams struct {
	Temperature       float64 `json:"temperature"`
	BeamSize          int     `json:"beam_size"`
	BranchFactor      int     `json:"branch_factor"`
	StepsPerIteration int     `json:"steps_per_iteration"`
	Seed              int64   `json:"seed,omitempty"`
}

// DefaultSamplingParams samples a single beam one step at a time
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{
		Temperature:       1.0,
		BeamSize:          1,
		BranchFactor:      1,
		StepsPerIteration: 1,
	}
}

// SequenceWriter persists a sequence to a playback file
type SequenceWriter interface {
	Write(seq *models.NoteSequence, path string) error
}

// PlotRenderer persists a visual rendering of a sequence
type PlotRenderer interface {
	Render(ctx context.Context, seq *models.NoteSequence, path, title string) error
}

// Result is the outcome of one orchestration
type Result struct {
	Sequence  *models.NoteSequence `json:"sequence"`
	Generator generator.Details    `json:"generator"`
	QPM       float64              `json:"qpm"`
	Windows   window.Windows       `json:"windows"`
	MIDIPath  string               `json:"midi_path"`
	PlotPath  string               `json:"plot_path"`
	Duration  time.Duration        `json:"duration"`
}

// Orchestrator holds the collaborators shared by every call
type Orchestrator struct {
	defaultQPM float64
	midi       SequenceWriter
	plot       PlotRenderer
	metrics    metrics.Recorder
}

// New creates an orchestrator. defaultQPM applies to primers without a tempo.
func New(defaultQPM float64, midi SequenceWriter, plot PlotRenderer, recorder metrics.Recorder) *Orchestrator {
	return &Orchestrator{
		defaultQPM: defaultQPM,
		midi:       midi,
		plot:       plot,
		metrics:    recorder,
	}
}

// ResolveQPM returns the primer's single tempo, or defaultQPM when it has none
func ResolveQPM(primer *models.NoteSequence, defaultQPM float64) (float64, error) {
	if primer == nil || len(primer.Tempos) == 0 {
		return defaultQPM, nil
	}
	if len(primer.Tempos) > 1 {
		return 0, &MultipleTempoError{Count: len(primer.Tempos)}
	}
	return primer.Tempos[0].QPM, nil
}

// GenerateAndPersist extends primer to totalLengthSteps with gen and writes
// both artifacts. The generator is called exactly once, after the window is
// validated. Any failure aborts the call.
func (o *Orchestrator) GenerateAndPersist(
	ctx context.Context,
	primer *models.NoteSequence,
	gen generator.Generator,
	params SamplingParams,
	totalLengthSteps int,
	naming artifacts.Naming,
) (*Result, error) {
	if primer == nil {
		primer = &models.NoteSequence{}
	}
	details := gen.Details()

	qpm, err := ResolveQPM(primer, o.defaultQPM)
	if err != nil {
		return nil, err
	}

	stepsPerQuarter := details.StepsPerQuarter
	if stepsPerQuarter <= 0 {
		stepsPerQuarter = window.DefaultStepsPerQuarter
	}
	epsilon := 0.0
	if details.NeedsBoundaryEpsilon {
		epsilon = window.BoundaryEpsilon
	}
	windows, err := window.ComputeWithEpsilon(primer.TotalTime, stepsPerQuarter, qpm, totalLengthSteps, epsilon)
	if err != nil {
		return nil, err
	}

	opts := &generator.Options{
		Temperature:       params.Temperature,
		BeamSize:          params.BeamSize,
		BranchFactor:      params.BranchFactor,
		StepsPerIteration: params.StepsPerIteration,
		Seed:              params.Seed,
		QPM:               qpm,
		StepsPerQuarter:   stepsPerQuarter,
		GenerateSections: []generator.Section{
			{Start: windows.GenerationStart, End: windows.GenerationEnd},
		},
	}

	start := time.Now()
	seq, err := gen.Generate(ctx, primer, opts)
	duration := time.Since(start)
	if o.metrics != nil {
		o.metrics.RecordGeneration(ctx, details.ID, windows.GenerationLengthSteps, duration, err == nil)
	}
	if err != nil {
		return nil, fmt.Errorf("generate with %s: %w", details.ID, err)
	}

	naming.GeneratorName = details.Name
	naming.GeneratorID = details.ID
	naming.Stamp()

	midiPath := naming.Path(artifacts.ExtMIDI)
	if err := o.midi.Write(seq, midiPath); err != nil {
		return nil, fmt.Errorf("write midi: %w", err)
	}

	plotPath := naming.Path(artifacts.ExtHTML)
	title := fmt.Sprintf("%s (%s)", details.ID, details.Name)
	if err := o.plot.Render(ctx, seq, plotPath, title); err != nil {
		return nil, fmt.Errorf("render plot: %w", err)
	}

	logger.LogGenerationRequest(ctx, details.ID, windows.GenerationLengthSteps, duration, logger.Fields{
		"qpm":        qpm,
		"midi_file":  naming.Filename(artifacts.ExtMIDI),
		"plot_file":  naming.Filename(artifacts.ExtHTML),
		"note_count": len(seq.Notes),
	})

	return &Result{
		Sequence:  seq,
		Generator: details,
		QPM:       qpm,
		Windows:   windows,
		MIDIPath:  midiPath,
		PlotPath:  plotPath,
		Duration:  duration,
	}, nil
}

// Run converts the result into a run history record
func (r *Result) Run(params SamplingParams, totalLengthSteps int) *models.GenerationRun {
	run := &models.GenerationRun{
		GeneratorName:     r.Generator.Name,
		GeneratorID:       r.Generator.ID,
		QPM:               r.QPM,
		StepsPerQuarter:   r.Generator.StepsPerQuarter,
		TotalLengthSteps:  totalLengthSteps,
		PrimerLengthSteps: r.Windows.PrimerLengthSteps,
		GenLengthSteps:    r.Windows.GenerationLengthSteps,
		PrimerEnd:         r.Windows.PrimerEnd,
		GenerationStart:   r.Windows.GenerationStart,
		GenerationEnd:     r.Windows.GenerationEnd,
		MIDIFile:          filepath.Base(r.MIDIPath),
		PlotFile:          filepath.Base(r.PlotPath),
		Status:            models.RunStatusSucceeded,
		DurationMS:        int(r.Duration.Milliseconds()),
	}
	if r.Sequence != nil {
		run.NoteCount = len(r.Sequence.Notes)
	}
	applyParams(run, params)
	return run
}

// FailedRun records a call that did not produce artifacts
func FailedRun(details generator.Details, params SamplingParams, totalLengthSteps int, err error) *models.GenerationRun {
	run := &models.GenerationRun{
		GeneratorName:    details.Name,
		GeneratorID:      details.ID,
		StepsPerQuarter:  details.StepsPerQuarter,
		TotalLengthSteps: totalLengthSteps,
		Status:           models.RunStatusFailed,
	}
	if err != nil {
		run.Error = err.Error()
	}
	applyParams(run, params)
	return run
}

func applyParams(run *models.GenerationRun, params SamplingParams) {
	run.Temperature = params.Temperature
	run.BeamSize = params.BeamSize
	run.BranchFactor = params.BranchFactor
	run.StepsPerIteration = params.StepsPerIteration
}
