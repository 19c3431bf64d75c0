package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	envVars := []string{
		"ENVIRONMENT", "PORT", "AUTH_MODE", "JWT_SECRET", "DATABASE_URL",
		"OPENAI_API_KEY", "GEMINI_API_KEY", "OPENAI_MODEL", "GEMINI_MODEL",
		"GENERATOR_SERVER_URL", "BUNDLE_DIR", "BUNDLE_BASE_URL", "BUNDLE_S3_BUCKET",
		"OUTPUT_DIR", "PRIMER_DIR", "OPEN_PLOT", "DEFAULT_GENERATOR",
		"DEFAULT_QPM", "STEPS_PER_QUARTER", "DEFAULT_TOTAL_STEPS", "LANGFUSE_ENABLED",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, AuthModeNone, cfg.AuthMode)
	assert.Equal(t, "melody.db", cfg.DatabaseURL)
	assert.Equal(t, "gpt-5-mini", cfg.OpenAIModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Empty(t, cfg.GeneratorServerURL)
	assert.Equal(t, "bundles", cfg.BundleDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "primers", cfg.PrimerDir)
	assert.False(t, cfg.OpenPlot)
	assert.Equal(t, "markov", cfg.DefaultGenerator)
	assert.Equal(t, 120.0, cfg.DefaultQPM)
	assert.Equal(t, 4, cfg.StepsPerQuarter)
	assert.Equal(t, 128, cfg.DefaultTotalSteps)
	assert.False(t, cfg.LangfuseEnabled)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.IsGatewayMode())
	assert.False(t, cfg.IsJWTMode())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH_MODE", "JWT")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GENERATOR_SERVER_URL", "http://rnn:9000/")
	t.Setenv("BUNDLE_BASE_URL", "https://bundles.example.com/")
	t.Setenv("OPEN_PLOT", "true")
	t.Setenv("DEFAULT_QPM", "96.5")
	t.Setenv("STEPS_PER_QUARTER", "2")
	t.Setenv("DEFAULT_TOTAL_STEPS", "64")
	t.Setenv("LANGFUSE_ENABLED", "true")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.IsJWTMode())
	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.Equal(t, "http://rnn:9000", cfg.GeneratorServerURL)
	assert.Equal(t, "https://bundles.example.com", cfg.BundleBaseURL)
	assert.True(t, cfg.OpenPlot)
	assert.Equal(t, 96.5, cfg.DefaultQPM)
	assert.Equal(t, 2, cfg.StepsPerQuarter)
	assert.Equal(t, 64, cfg.DefaultTotalSteps)
	assert.True(t, cfg.LangfuseEnabled)
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("DEFAULT_QPM", "fast")
	t.Setenv("STEPS_PER_QUARTER", "four")
	t.Setenv("OPEN_PLOT", "maybe")

	cfg := Load()

	assert.Equal(t, 120.0, cfg.DefaultQPM)
	assert.Equal(t, 4, cfg.StepsPerQuarter)
	assert.False(t, cfg.OpenPlot)
}
