package config

import (
	"os"
	"strconv"
	"strings"
)

// Auth modes
const (
	AuthModeNone    = "none"
	AuthModeGateway = "gateway"
	AuthModeJWT     = "jwt"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from an upstream gateway
	// - "jwt": Verify HS256 bearer tokens signed with JWTSecret
	AuthMode  string
	JWTSecret string

	// Run history database (postgres:// URL or sqlite file path)
	DatabaseURL string

	// LLM API Keys
	OpenAIAPIKey string // OpenAI API key for GPT models
	GeminiAPIKey string // Google Gemini API key
	OpenAIModel  string
	GeminiModel  string
	MCPServerURL string // Optional MCP server for the arranger

	// Remote melody generator
	GeneratorServerURL    string
	GeneratorServerAPIKey string

	// Bundles
	MarkovBundle   string // Optional transition table for the markov generator
	BundleDir      string // Local bundle cache
	BundleBaseURL  string // HTTP source for bundles
	BundleS3Bucket string // S3 source for bundles, takes precedence over BundleBaseURL
	AWSRegion      string

	// Artifacts and primers
	OutputDir string
	PrimerDir string
	OpenPlot  bool // Open the rendered plot in the system viewer

	// Generation defaults
	DefaultGenerator  string
	DefaultQPM        float64
	StepsPerQuarter   int
	DefaultTotalSteps int

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
}

func Load() *Config {
	return &Config{
		Environment:           getEnv("ENVIRONMENT", "development"),
		Port:                  getEnv("PORT", "8080"),
		AuthMode:              strings.ToLower(getEnv("AUTH_MODE", AuthModeNone)), // Default to no auth for self-hosted
		JWTSecret:             getEnv("JWT_SECRET", ""),
		DatabaseURL:           getEnv("DATABASE_URL", "melody.db"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-5-mini"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MCPServerURL:          getEnv("MCP_SERVER_URL", ""),
		GeneratorServerURL:    strings.TrimRight(getEnv("GENERATOR_SERVER_URL", ""), "/"),
		GeneratorServerAPIKey: getEnv("GENERATOR_SERVER_API_KEY", ""),
		MarkovBundle:          getEnv("MARKOV_BUNDLE", ""),
		BundleDir:             getEnv("BUNDLE_DIR", "bundles"),
		BundleBaseURL:         strings.TrimRight(getEnv("BUNDLE_BASE_URL", ""), "/"),
		BundleS3Bucket:        getEnv("BUNDLE_S3_BUCKET", ""),
		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		OutputDir:             getEnv("OUTPUT_DIR", "output"),
		PrimerDir:             getEnv("PRIMER_DIR", "primers"),
		OpenPlot:              getEnvBool("OPEN_PLOT", false),
		DefaultGenerator:      getEnv("DEFAULT_GENERATOR", "markov"),
		DefaultQPM:            getEnvFloat("DEFAULT_QPM", 120),
		StepsPerQuarter:       getEnvInt("STEPS_PER_QUARTER", 4),
		DefaultTotalSteps:     getEnvInt("DEFAULT_TOTAL_STEPS", 128),
		SentryDSN:             getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:     getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:     getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:          getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:       getEnv("LANGFUSE_ENABLED", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// IsGatewayMode returns true if running behind an auth gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == AuthModeGateway
}

// IsJWTMode returns true if bearer tokens are verified locally
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == AuthModeJWT
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
