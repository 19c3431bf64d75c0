package models

import (
	"time"

	"gorm.io/gorm"
)

// Generation run statuses
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// GenerationRun records one orchestration: the requested parameters, the
// computed windows and the artifacts that were written.
type GenerationRun struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GeneratorName string `gorm:"not null" json:"generator_name"`
	GeneratorID   string `gorm:"not null;index" json:"generator_id"`
	RequestID     string `gorm:"index" json:"request_id,omitempty"`

	QPM               float64 `json:"qpm"`
	StepsPerQuarter   int     `json:"steps_per_quarter"`
	TotalLengthSteps  int     `json:"total_length_steps"`
	PrimerLengthSteps int     `json:"primer_length_steps"`
	GenLengthSteps    int     `json:"generation_length_steps"`
	PrimerEnd         float64 `json:"primer_end"`
	GenerationStart   float64 `json:"generation_start"`
	GenerationEnd     float64 `json:"generation_end"`

	Temperature       float64 `json:"temperature"`
	BeamSize          int     `json:"beam_size"`
	BranchFactor      int     `json:"branch_factor"`
	StepsPerIteration int     `json:"steps_per_iteration"`

	MIDIFile   string `json:"midi_file,omitempty"`
	PlotFile   string `json:"plot_file,omitempty"`
	NoteCount  int    `json:"note_count"`
	Status     string `gorm:"default:'succeeded';index" json:"status"` // "succeeded", "failed"
	Error      string `json:"error,omitempty"`
	DurationMS int    `json:"duration_ms"`
}
