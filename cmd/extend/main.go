// Command extend continues a primer once and writes the MIDI file and the
// piano-roll plot to the output directory.
//
//	extend -generator attention_rnn -primer primer.mid -steps 128 -temperature 1.1 -open
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/Conceptual-Machines/melody-api/internal/artifacts"
	"github.com/Conceptual-Machines/melody-api/internal/bundle"
	"github.com/Conceptual-Machines/melody-api/internal/config"
	"github.com/Conceptual-Machines/melody-api/internal/database"
	"github.com/Conceptual-Machines/melody-api/internal/generator"
	"github.com/Conceptual-Machines/melody-api/internal/logger"
	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/observability"
	"github.com/Conceptual-Machines/melody-api/internal/orchestrator"
	"github.com/Conceptual-Machines/melody-api/internal/primer"
	"github.com/Conceptual-Machines/melody-api/internal/store"
)

type options struct {
	generator string
	primer    string
	steps     int
	qpm       float64
	params    orchestrator.SamplingParams
	outputDir string
	open      bool
	list      bool
	wait      time.Duration
	noHistory bool
}

func parseFlags(cfg *config.Config) *options {
	opts := &options{params: orchestrator.DefaultSamplingParams()}

	flag.StringVar(&opts.generator, "generator", cfg.DefaultGenerator, "generator id")
	flag.StringVar(&opts.primer, "primer", "", "primer file, inline DSL or melody list (empty for none)")
	flag.IntVar(&opts.steps, "steps", cfg.DefaultTotalSteps, "total length in steps, primer included")
	flag.Float64Var(&opts.qpm, "qpm", 0, "tempo for primers without one (default from DEFAULT_QPM)")
	flag.Float64Var(&opts.params.Temperature, "temperature", opts.params.Temperature, "sampling temperature")
	flag.IntVar(&opts.params.BeamSize, "beam-size", opts.params.BeamSize, "beams kept per iteration")
	flag.IntVar(&opts.params.BranchFactor, "branch-factor", opts.params.BranchFactor, "branches per beam")
	flag.IntVar(&opts.params.StepsPerIteration, "steps-per-iteration", opts.params.StepsPerIteration, "steps per beam search iteration")
	flag.Int64Var(&opts.params.Seed, "seed", 0, "random seed (0 for random)")
	flag.StringVar(&opts.outputDir, "output", cfg.OutputDir, "artifact directory")
	flag.BoolVar(&opts.open, "open", cfg.OpenPlot, "open the plot in the system viewer")
	flag.BoolVar(&opts.list, "list", false, "list generators and exit")
	flag.DurationVar(&opts.wait, "wait", 2*time.Minute, "how long to wait for a remote generator server")
	flag.BoolVar(&opts.noHistory, "no-history", false, "do not record the run in the database")
	flag.Parse()

	return opts
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()
	opts := parseFlags(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		logger.Error("Extend failed", err, logger.Fields{"generator": opts.generator})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts *options) error {
	observability.InitializeLangfuse(ctx, cfg)

	fetcher, err := bundle.NewFetcher(cfg)
	if err != nil {
		return err
	}
	registry := generator.NewRegistry(cfg, fetcher)

	if opts.list {
		for _, d := range registry.Details(ctx) {
			fmt.Printf("%-16s %-32s %s\n", d.ID, d.Name, d.Description)
		}
		return nil
	}

	gen, err := registry.Get(ctx, opts.generator)
	if err != nil {
		return err
	}
	if w, ok := gen.(interface{ WaitForHealthy(context.Context) error }); ok {
		waitCtx, cancel := context.WithTimeout(ctx, opts.wait)
		err := w.WaitForHealthy(waitCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("generator server not ready: %w", err)
		}
	}

	details := gen.Details()
	seq, err := primerLoader(cfg, details, opts.qpm).Load(opts.primer)
	if err != nil {
		return err
	}
	if opts.qpm > 0 && len(seq.Tempos) == 0 {
		seq.Tempos = []models.Tempo{{Time: 0, QPM: opts.qpm}}
	}

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	orch := orchestrator.New(cfg.DefaultQPM, artifacts.NewMIDIWriter(), artifacts.NewPlotRenderer(opts.open), nil)
	res, err := orch.GenerateAndPersist(ctx, seq, gen, opts.params, opts.steps, artifacts.Naming{OutputDir: opts.outputDir})
	if err != nil {
		recordRun(ctx, cfg, opts, orchestrator.FailedRun(details, opts.params, opts.steps, err))
		return err
	}
	recordRun(ctx, cfg, opts, res.Run(opts.params, opts.steps))

	fmt.Printf("Generated %d notes with %s (%s) in %s\n", len(res.Sequence.Notes), details.ID, details.Name, res.Duration.Round(time.Millisecond))
	fmt.Printf("Primer: %d steps, generated: %d steps [%.5f, %.5f)\n",
		res.Windows.PrimerLengthSteps, res.Windows.GenerationLengthSteps, res.Windows.GenerationStart, res.Windows.GenerationEnd)
	fmt.Printf("MIDI: %s\n", res.MIDIPath)
	fmt.Printf("Plot: %s\n", res.PlotPath)
	return nil
}

// recordRun adds the run to the history database. Failures are only logged.
// primerLoader lays primers out on the generator's grid, falling back to
// the configured tempo and resolution when either is unset.
func primerLoader(cfg *config.Config, details generator.Details, qpm float64) *primer.Loader {
	if qpm <= 0 {
		qpm = cfg.DefaultQPM
	}
	stepsPerQuarter := details.StepsPerQuarter
	if stepsPerQuarter <= 0 {
		stepsPerQuarter = cfg.StepsPerQuarter
	}
	return primer.NewLoader(cfg.PrimerDir, qpm, stepsPerQuarter)
}

func recordRun(ctx context.Context, cfg *config.Config, opts *options, run *models.GenerationRun) {
	if opts.noHistory {
		return
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err == nil {
		err = database.Migrate(db)
	}
	if err == nil {
		err = store.New(db).Create(ctx, run)
	}
	if err != nil {
		logger.Warn("Failed to record generation run", logger.Fields{"error": err.Error()})
	}
}
