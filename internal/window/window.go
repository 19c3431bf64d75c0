// Package window computes the primer and generation time windows handed to a
// sequence generator. Everything here is a pure function of its inputs.
package window

import (
	"errors"
	"fmt"
	"math"
)

const (
	// BoundaryEpsilon is removed from the primer end and added back to the
	// generation end so the generated section starts right after the last
	// primer step and ends on a step boundary.
	BoundaryEpsilon = 1e-5

	// DefaultStepsPerQuarter is the step resolution of the melody generators
	DefaultStepsPerQuarter = 4

	secondsPerMinute = 60.0
)

// ErrInvalidInput is returned for non-positive tempo, resolution or length
var ErrInvalidInput = errors.New("invalid window input")

// InvalidLengthError reports a requested total length that does not leave
// room for at least one generated step after the primer.
type InvalidLengthError struct {
	TotalLengthSteps  int
	PrimerLengthSteps int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf(
		"total length of %d steps must exceed the primer length of %d steps by at least one step",
		e.TotalLengthSteps, e.PrimerLengthSteps)
}

// Interval is a half-open time range [Start, End) in seconds
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Windows holds every value derived for one generation call
type Windows struct {
	StepDuration          float64 `json:"seconds_per_step"`
	Epsilon               float64 `json:"epsilon"`
	PrimerStart           float64 `json:"primer_start"`
	PrimerEnd             float64 `json:"primer_end"`
	GenerationStart       float64 `json:"generation_start"`
	GenerationEnd         float64 `json:"generation_end"`
	PrimerLengthSteps     int     `json:"primer_length_steps"`
	GenerationLengthSteps int     `json:"generation_length_steps"`
}

// Primer returns the primer window as an interval
func (w Windows) Primer() Interval {
	return Interval{Start: w.PrimerStart, End: w.PrimerEnd}
}

// Generation returns the generation window as an interval
func (w Windows) Generation() Interval {
	return Interval{Start: w.GenerationStart, End: w.GenerationEnd}
}

// StepDuration returns the length of one step in seconds
func StepDuration(qpm float64, stepsPerQuarter int) float64 {
	return secondsPerMinute / qpm / float64(stepsPerQuarter)
}

// Compute derives the primer and generation windows using BoundaryEpsilon
func Compute(primerTotalTime float64, stepsPerQuarter int, qpm float64, totalLengthSteps int) (Windows, error) {
	return ComputeWithEpsilon(primerTotalTime, stepsPerQuarter, qpm, totalLengthSteps, BoundaryEpsilon)
}

// ComputeWithEpsilon is Compute with an explicit boundary epsilon. Pass 0 for
// generators that align steps without the adjustment.
func ComputeWithEpsilon(
	primerTotalTime float64,
	stepsPerQuarter int,
	qpm float64,
	totalLengthSteps int,
	epsilon float64,
) (Windows, error) {
	if err := validate(primerTotalTime, stepsPerQuarter, qpm, totalLengthSteps, epsilon); err != nil {
		return Windows{}, err
	}

	step := StepDuration(qpm, stepsPerQuarter)

	primerLengthSteps := int(math.Ceil(primerTotalTime / step))
	primerLengthTime := float64(primerLengthSteps) * step

	eps := 0.0
	if primerLengthTime > 0 {
		eps = epsilon
	}

	primerStart := 0.0
	primerEnd := primerLengthTime - eps

	genLengthSteps := totalLengthSteps - primerLengthSteps
	if genLengthSteps <= 0 {
		return Windows{}, &InvalidLengthError{
			TotalLengthSteps:  totalLengthSteps,
			PrimerLengthSteps: primerLengthSteps,
		}
	}
	genLengthTime := float64(genLengthSteps) * step

	genStart := primerEnd
	genEnd := genStart + genLengthTime + eps

	return Windows{
		StepDuration:          step,
		Epsilon:               eps,
		PrimerStart:           primerStart,
		PrimerEnd:             primerEnd,
		GenerationStart:       genStart,
		GenerationEnd:         genEnd,
		PrimerLengthSteps:     primerLengthSteps,
		GenerationLengthSteps: genLengthSteps,
	}, nil
}

func validate(primerTotalTime float64, stepsPerQuarter int, qpm float64, totalLengthSteps int, epsilon float64) error {
	switch {
	case math.IsNaN(primerTotalTime) || math.IsInf(primerTotalTime, 0) || primerTotalTime < 0:
		return fmt.Errorf("%w: primer total time must be >= 0, got %v", ErrInvalidInput, primerTotalTime)
	case stepsPerQuarter <= 0:
		return fmt.Errorf("%w: steps per quarter must be > 0, got %d", ErrInvalidInput, stepsPerQuarter)
	case math.IsNaN(qpm) || math.IsInf(qpm, 0) || qpm <= 0:
		return fmt.Errorf("%w: qpm must be > 0, got %v", ErrInvalidInput, qpm)
	case totalLengthSteps <= 0:
		return fmt.Errorf("%w: total length must be > 0 steps, got %d", ErrInvalidInput, totalLengthSteps)
	case epsilon < 0:
		return fmt.Errorf("%w: epsilon must be >= 0, got %v", ErrInvalidInput, epsilon)
	}
	return nil
}
