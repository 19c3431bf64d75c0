package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/melody-api/internal/artifacts"
	"github.com/Conceptual-Machines/melody-api/internal/config"
	"github.com/Conceptual-Machines/melody-api/internal/generator"
	"github.com/Conceptual-Machines/melody-api/internal/logger"
	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/orchestrator"
	"github.com/Conceptual-Machines/melody-api/internal/primer"
	"github.com/Conceptual-Machines/melody-api/internal/store"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

// GenerationHandler extends primers and serves the run history
type GenerationHandler struct {
	cfg          *config.Config
	registry     *generator.Registry
	orchestrator *orchestrator.Orchestrator
	store        *store.Store
}

// NewGenerationHandler creates the handler. runs may be nil, in which case
// no history is kept.
func NewGenerationHandler(
	cfg *config.Config,
	registry *generator.Registry,
	orch *orchestrator.Orchestrator,
	runs *store.Store,
) *GenerationHandler {
	return &GenerationHandler{
		cfg:          cfg,
		registry:     registry,
		orchestrator: orch,
		store:        runs,
	}
}

type GenerateRequest struct {
	Generator string `json:"generator"`

	// One primer source. Primer is a file name in the primer directory,
	// inline DSL or an inline melody list.
	Primer         string               `json:"primer"`
	PrimerMelody   []int                `json:"primer_melody"`
	PrimerDSL      string               `json:"primer_dsl"`
	PrimerSequence *models.NoteSequence `json:"primer_sequence"`

	TotalLengthSteps int     `json:"total_length_steps"`
	QPM              float64 `json:"qpm"` // Used when the primer declares no tempo

	// Sampling parameters, defaults apply to omitted values
	Temperature       *float64 `json:"temperature"`
	BeamSize          int      `json:"beam_size"`
	BranchFactor      int      `json:"branch_factor"`
	StepsPerIteration int      `json:"steps_per_iteration"`
	Seed              int64    `json:"seed"`
}

type GenerateResponse struct {
	RunID      string               `json:"run_id,omitempty"`
	Generator  generator.Details    `json:"generator"`
	QPM        float64              `json:"qpm"`
	Window     window.Windows       `json:"window"`
	MIDIFile   string               `json:"midi_file"`
	PlotFile   string               `json:"plot_file"`
	MIDIURL    string               `json:"midi_url"`
	PlotURL    string               `json:"plot_url"`
	Sequence   *models.NoteSequence `json:"sequence"`
	DurationMS int64                `json:"duration_ms"`
}

func (r *GenerateRequest) samplingParams() orchestrator.SamplingParams {
	params := orchestrator.DefaultSamplingParams()
	if r.Temperature != nil {
		params.Temperature = *r.Temperature
	}
	if r.BeamSize != 0 {
		params.BeamSize = r.BeamSize
	}
	if r.BranchFactor != 0 {
		params.BranchFactor = r.BranchFactor
	}
	if r.StepsPerIteration != 0 {
		params.StepsPerIteration = r.StepsPerIteration
	}
	params.Seed = r.Seed
	return params
}

// Generate extends the requested primer and writes both artifacts
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	generatorID := req.Generator
	if generatorID == "" {
		generatorID = h.cfg.DefaultGenerator
	}
	gen, err := h.registry.Get(ctx, generatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	details := gen.Details()

	qpm := req.QPM
	if qpm <= 0 {
		qpm = h.cfg.DefaultQPM
	}
	stepsPerQuarter := details.StepsPerQuarter
	if stepsPerQuarter <= 0 {
		stepsPerQuarter = h.cfg.StepsPerQuarter
	}

	loader := primer.NewLoader(h.cfg.PrimerDir, qpm, stepsPerQuarter)
	loader.DirOnly = true
	seq, err := loadPrimer(&req, loader)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.QPM > 0 && len(seq.Tempos) == 0 {
		seq.Tempos = []models.Tempo{{Time: 0, QPM: req.QPM}}
	}

	totalLengthSteps := req.TotalLengthSteps
	if totalLengthSteps == 0 {
		totalLengthSteps = h.cfg.DefaultTotalSteps
	}
	params := req.samplingParams()

	res, err := h.orchestrator.GenerateAndPersist(ctx, seq, gen, params, totalLengthSteps,
		artifacts.Naming{OutputDir: h.cfg.OutputDir})
	if err != nil {
		h.recordRun(c, orchestrator.FailedRun(details, params, totalLengthSteps, err))
		respondError(c, err)
		return
	}

	run := res.Run(params, totalLengthSteps)
	h.recordRun(c, run)

	c.JSON(http.StatusOK, GenerateResponse{
		RunID:      run.ID,
		Generator:  res.Generator,
		QPM:        res.QPM,
		Window:     res.Windows,
		MIDIFile:   run.MIDIFile,
		PlotFile:   run.PlotFile,
		MIDIURL:    artifactsRoute + run.MIDIFile,
		PlotURL:    artifactsRoute + run.PlotFile,
		Sequence:   res.Sequence,
		DurationMS: res.Duration.Milliseconds(),
	})
}

// loadPrimer picks the first primer source set on req. File primers must be
// plain names inside the primer directory.
func loadPrimer(req *GenerateRequest, loader *primer.Loader) (*models.NoteSequence, error) {
	switch {
	case req.PrimerSequence != nil:
		seq := req.PrimerSequence.Clone()
		if seq.TotalTime == 0 {
			seq.RecomputeTotalTime()
		}
		return seq, nil
	case len(req.PrimerMelody) > 0:
		data, err := json.Marshal(req.PrimerMelody)
		if err != nil {
			return nil, err
		}
		return loader.ParseMelody(string(data))
	case req.PrimerDSL != "":
		return primer.ParseDSL(req.PrimerDSL)
	case strings.ContainsAny(req.Primer, `/\`) || strings.HasPrefix(req.Primer, ".."):
		return nil, fmt.Errorf("%w: %q is not a primer file name", primer.ErrInvalidPrimer, req.Primer)
	default:
		return loader.Load(req.Primer)
	}
}

// recordRun stores run. History is best effort and never fails the request.
func (h *GenerationHandler) recordRun(c *gin.Context, run *models.GenerationRun) {
	if h.store == nil {
		return
	}
	run.RequestID = c.GetString("request_id")
	if err := h.store.Create(c.Request.Context(), run); err != nil {
		fields := logger.WithContext(c)
		fields["error"] = err.Error()
		logger.Warn("Failed to record generation run", fields)
	}
}

// List returns recent runs, optionally filtered by generator
func (h *GenerationHandler) List(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is disabled"})
		return
	}

	opts := store.ListOptions{
		GeneratorID: c.Query("generator"),
		Limit:       defaultPageSize,
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			opts.Limit = min(n, maxPageSize)
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if n, err := strconv.Atoi(offsetStr); err == nil && n > 0 {
			opts.Offset = n
		}
	}

	runs, err := h.store.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":   runs,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// Get returns a single run with links to its artifacts
func (h *GenerationHandler) Get(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is disabled"})
		return
	}

	run, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	links := gin.H{}
	if run.MIDIFile != "" {
		links["midi"] = artifactsRoute + run.MIDIFile
	}
	if run.PlotFile != "" {
		links["plot"] = artifactsRoute + run.PlotFile
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "artifacts": links})
}

// Delete removes a run from the history. Artifacts stay on disk.
func (h *GenerationHandler) Delete(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is disabled"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
