// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Scoring strategies
const (
	StrategyHeuristic = "heuristic"
	StrategyExternal  = "external"
)

// Model providers for the external strategy
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	AVSPort       string
	MempoolPort   string
	MempoolWSPort string // dedicated WebSocket listener, empty when disabled

	// Attestation
	PrivateKey     string // Hex-encoded secp256k1 key, with or without 0x
	SigningTimeout time.Duration

	// Scoring
	Strategy           string
	HeuristicThreshold int
	ExternalThreshold  int
	OracleTimeout      time.Duration

	// Consecutive model failures before scoring skips the model for
	// OracleBreakerCooldown. Zero disables the breaker.
	OracleBreakerThreshold int
	OracleBreakerCooldown  time.Duration

	// External model
	ModelProvider  string
	ModelAPIKey    string
	ModelName      string
	ModelBaseURL   string
	ModelMaxTokens int

	// Security
	CORSOrigins    []string
	RateLimitRPM   int
	RateLimitBurst int

	// Mempool
	MaxSubscribers int

	// Observability
	OTLPEndpoint     string
	TraceSampleRatio float64
}

// Defaults
const (
	DefaultEnv                = "development"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultAVSPort            = "3001"
	DefaultMempoolPort        = "4001"
	DefaultMempoolWSPort      = "4000"
	DefaultHeuristicThreshold = 50
	DefaultExternalThreshold  = 70
	DefaultOracleTimeout      = 10 * time.Second
	DefaultSigningTimeout     = 5 * time.Second
	DefaultBreakerThreshold   = 5
	DefaultBreakerCooldown    = 30 * time.Second
	DefaultOpenAIBaseURL      = "https://api.openai.com/v1"
	DefaultOpenAIModel        = "gpt-4o-mini"
	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultModelMaxTokens     = 5
	DefaultRateLimitRPM       = 120
	DefaultRateLimitBurst     = 20
	DefaultMaxSubscribers     = 10000
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("MODEL_PROVIDER", ProviderOpenAI))

	cfg := &Config{
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          getEnv("LOG_FORMAT", DefaultLogFormat),
		AVSPort:            getEnv("AVS_PORT", DefaultAVSPort),
		MempoolPort:        getEnv("MEMPOOL_PORT", DefaultMempoolPort),
		MempoolWSPort:      getEnv("MEMPOOL_WS_PORT", DefaultMempoolWSPort),
		PrivateKey:         firstEnv("AVS_PRIVATE_KEY", "PRIVATE_KEY"),
		SigningTimeout:     getEnvDuration("SIGNING_TIMEOUT", DefaultSigningTimeout),
		Strategy:           strings.ToLower(getEnv("SCORING_STRATEGY", StrategyHeuristic)),
		HeuristicThreshold: int(getEnvInt64("HEURISTIC_THRESHOLD", DefaultHeuristicThreshold)),
		ExternalThreshold:  int(getEnvInt64("EXTERNAL_THRESHOLD", DefaultExternalThreshold)),
		OracleTimeout:      getEnvDuration("ORACLE_TIMEOUT", DefaultOracleTimeout),
		ModelProvider:      provider,
		ModelAPIKey:        modelAPIKey(provider),
		ModelName:          getEnv("MODEL_NAME", defaultModel(provider)),
		ModelBaseURL:       getEnv("MODEL_BASE_URL", DefaultOpenAIBaseURL),
		ModelMaxTokens:     int(getEnvInt64("MODEL_MAX_TOKENS", DefaultModelMaxTokens)),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:       int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		RateLimitBurst:     int(getEnvInt64("RATE_LIMIT_BURST", DefaultRateLimitBurst)),
		MaxSubscribers:     int(getEnvInt64("MAX_SUBSCRIBERS", DefaultMaxSubscribers)),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio:   getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),

		OracleBreakerThreshold: int(getEnvInt64("ORACLE_BREAKER_THRESHOLD", DefaultBreakerThreshold)),
		OracleBreakerCooldown:  getEnvDuration("ORACLE_BREAKER_COOLDOWN", DefaultBreakerCooldown),
	}

	if strings.EqualFold(cfg.MempoolWSPort, "off") {
		cfg.MempoolWSPort = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings shared by both services
func (c *Config) Validate() error {
	if c.HeuristicThreshold < 0 || c.HeuristicThreshold > 100 {
		return fmt.Errorf("HEURISTIC_THRESHOLD must be between 0 and 100, got %d", c.HeuristicThreshold)
	}
	if c.ExternalThreshold < 0 || c.ExternalThreshold > 100 {
		return fmt.Errorf("EXTERNAL_THRESHOLD must be between 0 and 100, got %d", c.ExternalThreshold)
	}

	switch c.Strategy {
	case StrategyHeuristic:
	case StrategyExternal:
		switch c.ModelProvider {
		case ProviderOpenAI, ProviderGemini:
		default:
			return fmt.Errorf("MODEL_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.ModelProvider)
		}
	default:
		return fmt.Errorf("SCORING_STRATEGY must be %q or %q, got %q", StrategyHeuristic, StrategyExternal, c.Strategy)
	}

	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	if c.OracleBreakerThreshold < 0 {
		return fmt.Errorf("ORACLE_BREAKER_THRESHOLD must not be negative")
	}
	if c.SigningTimeout <= 0 {
		return fmt.Errorf("SIGNING_TIMEOUT must be positive")
	}
	if c.ModelMaxTokens <= 0 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be positive")
	}

	return nil
}

// ValidateAVS checks the settings only the classification service needs.
func (c *Config) ValidateAVS() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("AVS_PRIVATE_KEY is required")
	}

	// Allow both with and without 0x prefix
	key := strings.TrimPrefix(c.PrivateKey, "0x")
	if len(key) != 64 {
		return fmt.Errorf("AVS_PRIVATE_KEY must be 64 hex characters (with or without 0x prefix)")
	}

	if c.Strategy == StrategyExternal && c.ModelAPIKey == "" {
		return fmt.Errorf("MODEL_API_KEY is required when SCORING_STRATEGY=%s", StrategyExternal)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func modelAPIKey(provider string) string {
	if provider == ProviderGemini {
		return firstEnv("MODEL_API_KEY", "GEMINI_API_KEY")
	}
	return firstEnv("MODEL_API_KEY", "OPENAI_API_KEY")
}

func defaultModel(provider string) string {
	if provider == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
