package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Conceptual-Machines/melody-api/internal/config"
	"github.com/Conceptual-Machines/melody-api/internal/generator"
)

func TestPrimerLoaderFallsBackToConfig(t *testing.T) {
	cfg := &config.Config{PrimerDir: "primers", DefaultQPM: 120, StepsPerQuarter: 4}

	tests := []struct {
		name      string
		details   generator.Details
		qpm       float64
		wantQPM   float64
		wantSteps int
	}{
		{name: "generator grid", details: generator.Details{StepsPerQuarter: 8}, qpm: 90, wantQPM: 90, wantSteps: 8},
		{name: "unset resolution", details: generator.Details{}, qpm: 90, wantQPM: 90, wantSteps: 4},
		{name: "negative resolution", details: generator.Details{StepsPerQuarter: -1}, wantQPM: 120, wantSteps: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := primerLoader(cfg, tt.details, tt.qpm)
			assert.Equal(t, "primers", loader.Dir)
			assert.Equal(t, tt.wantQPM, loader.QPM)
			assert.Equal(t, tt.wantSteps, loader.StepsPerQuarter)
			assert.False(t, loader.DirOnly)
		})
	}
}

func TestPrimerLoaderParsesOnConfiguredGrid(t *testing.T) {
	cfg := &config.Config{DefaultQPM: 120, StepsPerQuarter: 4}

	seq, err := primerLoader(cfg, generator.Details{}, 0).Load("[60, -2, -1]")
	assert.NoError(t, err)
	if assert.Len(t, seq.Notes, 1) {
		// one 16th step at 120 qpm is 0.125s
		assert.InDelta(t, 0.25, seq.Notes[0].EndTime, 1e-9)
	}
}
