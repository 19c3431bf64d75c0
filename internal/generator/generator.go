// Package generator defines the sequence generator capability and the
// generators the service can run.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Conceptual-Machines/melody-api/internal/models"
)

// ErrInvalidOptions is returned when generator options are out of range
var ErrInvalidOptions = errors.New("invalid generator options")

// Section is a half-open time range [Start, End) in seconds to fill
type Section struct {
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
}

// Options carries the sampling parameters and the time range for one call
type Options struct {
	Temperature       float64   `json:"temperature"`
	BeamSize          int       `json:"beam_size"`
	BranchFactor      int       `json:"branch_factor"`
	StepsPerIteration int       `json:"steps_per_iteration"`
	Seed              int64     `json:"seed,omitempty"`
	QPM               float64   `json:"qpm"`
	StepsPerQuarter   int       `json:"steps_per_quarter"`
	GenerateSections  []Section `json:"generate_sections"`
}

// Validate checks sampling parameters and requires exactly one section
func (o *Options) Validate() error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: options are required", ErrInvalidOptions)
	case o.Temperature <= 0 || math.IsNaN(o.Temperature):
		return fmt.Errorf("%w: temperature must be > 0, got %v", ErrInvalidOptions, o.Temperature)
	case o.BeamSize < 1:
		return fmt.Errorf("%w: beam_size must be >= 1, got %d", ErrInvalidOptions, o.BeamSize)
	case o.BranchFactor < 1:
		return fmt.Errorf("%w: branch_factor must be >= 1, got %d", ErrInvalidOptions, o.BranchFactor)
	case o.StepsPerIteration < 1:
		return fmt.Errorf("%w: steps_per_iteration must be >= 1, got %d", ErrInvalidOptions, o.StepsPerIteration)
	case o.QPM <= 0:
		return fmt.Errorf("%w: qpm must be > 0, got %v", ErrInvalidOptions, o.QPM)
	case o.StepsPerQuarter < 1:
		return fmt.Errorf("%w: steps_per_quarter must be >= 1, got %d", ErrInvalidOptions, o.StepsPerQuarter)
	case len(o.GenerateSections) != 1:
		return fmt.Errorf("%w: exactly one generate section is supported, got %d", ErrInvalidOptions, len(o.GenerateSections))
	case o.GenerateSections[0].End <= o.GenerateSections[0].Start:
		return fmt.Errorf("%w: generate section is empty", ErrInvalidOptions)
	}
	return nil
}

// Details describes a generator configuration
type Details struct {
	// Name is the generator family, e.g. melody_rnn_sequence_generator
	Name string `json:"name"`
	// ID is the configuration id inside the family, e.g. attention_rnn
	ID          string `json:"id"`
	Description string `json:"description"`

	StepsPerQuarter int `json:"steps_per_quarter"`
	// NeedsBoundaryEpsilon is set for backends that place the first generated
	// step after the primer only when the window is shifted by a small epsilon.
	NeedsBoundaryEpsilon bool `json:"needs_boundary_epsilon"`
}

// Generator produces a sequence that extends primer over the single section
// in opts. The result contains the primer followed by the continuation.
type Generator interface {
	Generate(ctx context.Context, primer *models.NoteSequence, opts *Options) (*models.NoteSequence, error)
	Details() Details
}

// Factory builds a generator instance
type Factory func(ctx context.Context) (Generator, error)

// appendContinuation returns primer followed by the notes of continuation
// that start inside section. Notes running past the section end are cut.
func appendContinuation(primer, continuation *models.NoteSequence, section Section) *models.NoteSequence {
	out := primer.Clone()
	if continuation == nil {
		return out
	}
	for _, n := range continuation.NotesBetween(section.Start, section.End) {
		if n.EndTime > section.End {
			n.EndTime = section.End
		}
		if n.EndTime <= n.StartTime {
			continue
		}
		out.AddNote(n)
	}
	out.SortNotes()
	return out
}
