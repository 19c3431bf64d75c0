package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/melody-api/internal/bundle"
	"github.com/Conceptual-Machines/melody-api/internal/config"
)

// ErrUnknownGenerator is returned by Registry.Get for unregistered ids
var ErrUnknownGenerator = errors.New("unknown generator")

// Registry maps configuration ids to generator factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewEmptyRegistry creates a registry without any generators
func NewEmptyRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewRegistry registers every generator the configuration enables.
// The local markov generator is always available.
func NewRegistry(cfg *config.Config, fetcher bundle.Fetcher) *Registry {
	r := NewEmptyRegistry()

	// shared so the bundle table is loaded once
	markov := NewMarkovGenerator(fetcher, cfg.MarkovBundle)
	r.Register(MarkovID, func(context.Context) (Generator, error) {
		return markov, nil
	})

	if cfg.GeneratorServerURL != "" {
		client := NewRemoteClient(cfg.GeneratorServerURL, cfg.GeneratorServerAPIKey)
		for _, id := range MelodyRNNIDs {
			r.Register(id, func(context.Context) (Generator, error) {
				return NewRemoteGenerator(client, id)
			})
		}
	}

	if cfg.OpenAIAPIKey != "" || cfg.GeminiAPIKey != "" {
		newLLM := NewLLMGeneratorFactory(cfg)
		if cfg.OpenAIAPIKey != "" {
			r.Register(OpenAIID, newLLM(OpenAIID, cfg.OpenAIModel))
			r.Register(ArrangerID, func(context.Context) (Generator, error) {
				return NewArrangerGenerator(cfg), nil
			})
		}
		if cfg.GeminiAPIKey != "" {
			r.Register(GeminiID, newLLM(GeminiID, cfg.GeminiModel))
		}
	}

	log.Printf("🎹 Registered generators: %s", strings.Join(r.IDs(), ", "))
	return r
}

// Register adds or replaces the factory for id
func (r *Registry) Register(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

// Get builds the generator registered under id
func (r *Registry) Get(ctx context.Context, id string) (Generator, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrUnknownGenerator, id, strings.Join(r.IDs(), ", "))
	}

	gen, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("create generator %s: %w", id, err)
	}
	return gen, nil
}

// IDs returns the registered ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Details builds every registered generator and returns its details.
// Generators that fail to build are skipped.
func (r *Registry) Details(ctx context.Context) []Details {
	var out []Details
	for _, id := range r.IDs() {
		gen, err := r.Get(ctx, id)
		if err != nil {
			log.Printf("⚠️  Skipping generator %s: %v", id, err)
			continue
		}
		out = append(out, gen.Details())
	}
	return out
}
