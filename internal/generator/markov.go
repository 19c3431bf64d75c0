package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/Conceptual-Machines/melody-api/internal/bundle"
	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

const (
	MarkovID     = "markov"
	MarkovFamily = "markov_sequence_generator"

	// primerWeight scales transitions learned from the primer against the bundle table
	primerWeight = 4.0
)

// fallbackVocabulary seeds sampling when neither the primer nor a bundle
// carries any transition: a C major pentatonic around middle C plus holds.
var fallbackVocabulary = map[int]float64{
	60: 1, 62: 1, 64: 1, 67: 1, 69: 1, 72: 0.5,
	models.MelodyNoEvent: 3,
	models.MelodyNoteOff: 0.5,
}

// transitionTable counts event -> next event transitions
type transitionTable map[int]map[int]float64

// markovBundle is the on-disk bundle format. JSON object keys are event
// numbers encoded as strings.
type markovBundle struct {
	Transitions map[string]map[string]float64 `json:"transitions"`
}

// MarkovGenerator is a local first-order melody model sampled with beam search
type MarkovGenerator struct {
	fetcher    bundle.Fetcher
	bundleName string

	mu     sync.Mutex
	loaded transitionTable
}

// NewMarkovGenerator creates the generator. bundleName may be empty, in
// which case only the primer drives the transition table.
func NewMarkovGenerator(fetcher bundle.Fetcher, bundleName string) *MarkovGenerator {
	return &MarkovGenerator{fetcher: fetcher, bundleName: bundleName}
}

// Details describes the markov generator
func (g *MarkovGenerator) Details() Details {
	return Details{
		Name:                 MarkovFamily,
		ID:                   MarkovID,
		Description:          "First-order melody Markov chain learned from the primer, sampled with beam search",
		StepsPerQuarter:      window.DefaultStepsPerQuarter,
		NeedsBoundaryEpsilon: false,
	}
}

// Generate extends primer over the requested section
func (g *MarkovGenerator) Generate(
	ctx context.Context, primer *models.NoteSequence, opts *Options,
) (*models.NoteSequence, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	section := opts.GenerateSections[0]
	step := window.StepDuration(opts.QPM, opts.StepsPerQuarter)
	startStep := int(math.Round(section.Start / step))
	endStep := int(math.Round(section.End / step))
	if endStep <= startStep {
		return nil, fmt.Errorf("%w: section shorter than one step", ErrInvalidOptions)
	}

	table, err := g.bundleTable(ctx)
	if err != nil {
		return nil, err
	}

	history := models.MelodyFromSequence(primer, step, 0, startStep)
	table = mergeTables(table, learnTransitions(history), primerWeight)

	rng := newRand(opts.Seed)
	events, err := beamSearch(ctx, table, history, endStep-startStep, opts, rng)
	if err != nil {
		return nil, err
	}

	continuation := models.SequenceFromMelody(events, step, startStep, models.DefaultVelocity)
	out := appendContinuation(primer, continuation, section)
	if end := float64(endStep) * step; end > out.TotalTime {
		out.TotalTime = end
	}

	log.Printf("🎼 Markov generated %d steps (%d notes)", len(events), len(continuation.Notes))
	return out, nil
}

// bundleTable loads the configured bundle once and caches it
func (g *MarkovGenerator) bundleTable(ctx context.Context) (transitionTable, error) {
	if g.bundleName == "" || g.fetcher == nil {
		return transitionTable{}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loaded != nil {
		return g.loaded, nil
	}

	path, err := g.fetcher.Fetch(ctx, g.bundleName)
	if err != nil {
		return nil, fmt.Errorf("fetch markov bundle: %w", err)
	}
	table, err := loadMarkovBundle(path)
	if err != nil {
		return nil, err
	}

	g.loaded = table
	return table, nil
}

func loadMarkovBundle(path string) (transitionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markov bundle: %w", err)
	}

	var b markovBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse markov bundle: %w", err)
	}

	table := transitionTable{}
	for from, row := range b.Transitions {
		fromEvent, err := parseEvent(from)
		if err != nil {
			return nil, err
		}
		for to, weight := range row {
			toEvent, err := parseEvent(to)
			if err != nil {
				return nil, err
			}
			if weight <= 0 {
				continue
			}
			if table[fromEvent] == nil {
				table[fromEvent] = map[int]float64{}
			}
			table[fromEvent][toEvent] += weight
		}
	}
	return table, nil
}

func parseEvent(s string) (int, error) {
	ev, err := strconv.Atoi(s)
	if err != nil || ev < models.MelodyNoEvent || ev > 127 {
		return 0, fmt.Errorf("parse markov bundle: invalid event %q", s)
	}
	return ev, nil
}

func learnTransitions(events []int) transitionTable {
	table := transitionTable{}
	for i := 1; i < len(events); i++ {
		from, to := events[i-1], events[i]
		if table[from] == nil {
			table[from] = map[int]float64{}
		}
		table[from][to]++
	}
	return table
}

func mergeTables(base, extra transitionTable, weight float64) transitionTable {
	out := transitionTable{}
	for _, src := range []struct {
		t transitionTable
		w float64
	}{{base, 1}, {extra, weight}} {
		for from, row := range src.t {
			if out[from] == nil {
				out[from] = map[int]float64{}
			}
			for to, count := range row {
				out[from][to] += count * src.w
			}
		}
	}
	return out
}

// distribution returns candidate events and their probabilities for the
// state after prev, tempered by temperature. Candidates are sorted so a
// seeded RNG always yields the same sample.
func (t transitionTable) distribution(prev int, temperature float64) ([]int, []float64) {
	row := t[prev]
	if len(row) == 0 {
		row = t.unigram()
	}
	if len(row) == 0 {
		row = fallbackVocabulary
	}

	events := make([]int, 0, len(row))
	for ev := range row {
		events = append(events, ev)
	}
	sort.Ints(events)

	// w^(1/T) overflows for small T, so temper in log space relative to the
	// largest weight.
	logits := make([]float64, len(events))
	maxLogit := math.Inf(-1)
	for i, ev := range events {
		logits[i] = math.Log(row[ev]) / temperature
		maxLogit = max(maxLogit, logits[i])
	}

	probs := make([]float64, len(events))
	total := 0.0
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}
	return events, probs
}

func (t transitionTable) unigram() map[int]float64 {
	counts := map[int]float64{}
	for _, row := range t {
		for ev, c := range row {
			counts[ev] += c
		}
	}
	return counts
}

type beam struct {
	events  []int
	logProb float64
}

// beamSearch generates n events. Every stepsPerIteration steps each of the
// surviving beams is extended by branchFactor sampled branches and the
// beamSize most likely candidates are kept.
func beamSearch(
	ctx context.Context, table transitionTable, history []int, n int, opts *Options, rng *rand.Rand,
) ([]int, error) {
	beams := []beam{{events: []int{}}}

	for remaining := n; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		k := min(opts.StepsPerIteration, remaining)
		candidates := make([]beam, 0, len(beams)*opts.BranchFactor)
		for _, b := range beams {
			for range opts.BranchFactor {
				candidates = append(candidates, extend(table, history, b, k, opts.Temperature, rng))
			}
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].logProb > candidates[j].logProb
		})
		if len(candidates) > opts.BeamSize {
			candidates = candidates[:opts.BeamSize]
		}
		beams = candidates
		remaining -= k
	}

	if len(beams) == 0 {
		return nil, errors.New("beam search produced no candidates")
	}
	return beams[0].events, nil
}

func extend(table transitionTable, history []int, b beam, k int, temperature float64, rng *rand.Rand) beam {
	events := append(make([]int, 0, len(b.events)+k), b.events...)
	logProb := b.logProb

	for range k {
		prev := models.MelodyNoEvent
		switch {
		case len(events) > 0:
			prev = events[len(events)-1]
		case len(history) > 0:
			prev = history[len(history)-1]
		}

		candidates, probs := table.distribution(prev, temperature)
		i := sample(probs, rng)
		events = append(events, candidates[i])
		logProb += math.Log(probs[i])
	}

	return beam{events: events, logProb: logProb}
}

func sample(probs []float64, rng *rand.Rand) int {
	r := rng.Float64()
	acc := 0.0
	last := 0
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		acc += p
		last = i
		if r < acc {
			return i
		}
	}
	return last
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}
