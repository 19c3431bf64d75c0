package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/melody-api/internal/bundle"
	"github.com/Conceptual-Machines/melody-api/internal/config"
)

func TestRegistryGet(t *testing.T) {
	r := NewEmptyRegistry()
	r.Register("stub", func(context.Context) (Generator, error) {
		return &stubGenerator{details: Details{Name: "stub_family", ID: "stub"}}, nil
	})

	gen, err := r.Get(context.Background(), "stub")
	require.NoError(t, err)
	assert.Equal(t, "stub", gen.Details().ID)

	_, err = r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownGenerator)
	assert.Contains(t, err.Error(), "stub")
}

func TestRegistryFactoryError(t *testing.T) {
	r := NewEmptyRegistry()
	boom := errors.New("boom")
	r.Register("broken", func(context.Context) (Generator, error) { return nil, boom })
	r.Register("ok", func(context.Context) (Generator, error) {
		return &stubGenerator{details: Details{ID: "ok"}}, nil
	})

	_, err := r.Get(context.Background(), "broken")
	assert.ErrorIs(t, err, boom)

	details := r.Details(context.Background())
	require.Len(t, details, 1)
	assert.Equal(t, "ok", details[0].ID)
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want []string
	}{
		{
			name: "markov only",
			cfg:  &config.Config{},
			want: []string{MarkovID},
		},
		{
			name: "remote server",
			cfg:  &config.Config{GeneratorServerURL: "http://localhost:9000"},
			want: []string{"attention_rnn", "basic_rnn", "lookback_rnn", MarkovID, "mono_rnn"},
		},
		{
			name: "openai",
			cfg:  &config.Config{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-5-mini"},
			want: []string{ArrangerID, MarkovID, OpenAIID},
		},
		{
			name: "gemini",
			cfg:  &config.Config{GeminiAPIKey: "test", GeminiModel: "gemini-2.5-flash"},
			want: []string{GeminiID, MarkovID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.cfg, &bundle.NoopFetcher{Dir: t.TempDir()})
			assert.Equal(t, tt.want, r.IDs())
		})
	}
}

func TestNewRegistryLoadsMarkovBundleOnce(t *testing.T) {
	fetcher := &countingFetcher{path: writeBundle(t, `{"transitions":{"60":{"62":1},"62":{"60":1}}}`)}
	r := NewRegistry(&config.Config{MarkovBundle: "markov"}, fetcher)
	ctx := context.Background()

	for range 3 {
		gen, err := r.Get(ctx, MarkovID)
		require.NoError(t, err)
		_, err = gen.Generate(ctx, testPrimer(), testOptions(1.5, 4.0))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fetcher.calls)

	first, err := r.Get(ctx, MarkovID)
	require.NoError(t, err)
	second, err := r.Get(ctx, MarkovID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
