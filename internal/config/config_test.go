package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if !had {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AVS_PRIVATE_KEY", "PRIVATE_KEY", "SCORING_STRATEGY", "MODEL_PROVIDER",
		"MODEL_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "MODEL_NAME",
		"HEURISTIC_THRESHOLD", "EXTERNAL_THRESHOLD", "MEMPOOL_WS_PORT",
		"ORACLE_TIMEOUT", "CORS_ORIGINS", "ORACLE_BREAKER_THRESHOLD", "ORACLE_BREAKER_COOLDOWN",
		"OTEL_TRACES_SAMPLER_ARG",
	} {
		setEnv(t, k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultAVSPort, cfg.AVSPort)
	assert.Equal(t, DefaultMempoolPort, cfg.MempoolPort)
	assert.Equal(t, DefaultMempoolWSPort, cfg.MempoolWSPort)
	assert.Equal(t, StrategyHeuristic, cfg.Strategy)
	assert.Equal(t, DefaultHeuristicThreshold, cfg.HeuristicThreshold)
	assert.Equal(t, DefaultExternalThreshold, cfg.ExternalThreshold)
	assert.Equal(t, DefaultOracleTimeout, cfg.OracleTimeout)
	assert.Equal(t, DefaultBreakerThreshold, cfg.OracleBreakerThreshold)
	assert.Equal(t, DefaultBreakerCooldown, cfg.OracleBreakerCooldown)
	assert.Equal(t, DefaultOpenAIModel, cfg.ModelName)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.InDelta(t, 1.0, cfg.TraceSampleRatio, 1e-9)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	setEnv(t, "AVS_PRIVATE_KEY", "0x"+testKey)
	setEnv(t, "SCORING_STRATEGY", "EXTERNAL")
	setEnv(t, "MODEL_PROVIDER", "gemini")
	setEnv(t, "GEMINI_API_KEY", "g-key")
	setEnv(t, "ORACLE_TIMEOUT", "3s")
	setEnv(t, "MEMPOOL_WS_PORT", "off")
	setEnv(t, "OTEL_TRACES_SAMPLER_ARG", "0.25")
	setEnv(t, "CORS_ORIGINS", "http://localhost:3000, https://watchdog.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateAVS())

	assert.Equal(t, StrategyExternal, cfg.Strategy)
	assert.Equal(t, ProviderGemini, cfg.ModelProvider)
	assert.Equal(t, "g-key", cfg.ModelAPIKey)
	assert.Equal(t, DefaultGeminiModel, cfg.ModelName)
	assert.Equal(t, 3*time.Second, cfg.OracleTimeout)
	assert.Empty(t, cfg.MempoolWSPort)
	assert.InDelta(t, 0.25, cfg.TraceSampleRatio, 1e-9)
	assert.Equal(t, []string{"http://localhost:3000", "https://watchdog.example"}, cfg.CORSOrigins)
}

func TestLoad_PrivateKeyFallback(t *testing.T) {
	clearEnv(t)
	setEnv(t, "PRIVATE_KEY", testKey)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, testKey, cfg.PrivateKey)
}

func TestLoad_UnknownStrategy(t *testing.T) {
	clearEnv(t)
	setEnv(t, "SCORING_STRATEGY", "vibes")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SCORING_STRATEGY")
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		return Config{
			Strategy:           StrategyHeuristic,
			ModelProvider:      ProviderOpenAI,
			HeuristicThreshold: 50,
			ExternalThreshold:  70,
			OracleTimeout:      time.Second,
			SigningTimeout:     time.Second,
			ModelMaxTokens:     5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "threshold above range", mutate: func(c *Config) { c.HeuristicThreshold = 101 }, wantErr: "HEURISTIC_THRESHOLD"},
		{name: "negative external threshold", mutate: func(c *Config) { c.ExternalThreshold = -1 }, wantErr: "EXTERNAL_THRESHOLD"},
		{name: "unknown provider", mutate: func(c *Config) {
			c.Strategy = StrategyExternal
			c.ModelProvider = "llama"
		}, wantErr: "MODEL_PROVIDER"},
		{name: "zero oracle timeout", mutate: func(c *Config) { c.OracleTimeout = 0 }, wantErr: "ORACLE_TIMEOUT"},
		{name: "negative breaker threshold", mutate: func(c *Config) { c.OracleBreakerThreshold = -1 }, wantErr: "ORACLE_BREAKER_THRESHOLD"},
		{name: "zero max tokens", mutate: func(c *Config) { c.ModelMaxTokens = 0 }, wantErr: "MODEL_MAX_TOKENS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateAVS(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "valid key", config: Config{PrivateKey: testKey, Strategy: StrategyHeuristic}},
		{name: "valid key with prefix", config: Config{PrivateKey: "0x" + testKey, Strategy: StrategyHeuristic}},
		{name: "missing key", config: Config{Strategy: StrategyHeuristic}, wantErr: "AVS_PRIVATE_KEY is required"},
		{name: "short key", config: Config{PrivateKey: "tooshort"}, wantErr: "64 hex characters"},
		{name: "external without api key", config: Config{PrivateKey: testKey, Strategy: StrategyExternal}, wantErr: "MODEL_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.ValidateAVS()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	assert.True(t, (&Config{Env: "development"}).IsDevelopment())
	assert.False(t, (&Config{Env: "production"}).IsDevelopment())
	assert.True(t, (&Config{Env: "production"}).IsProduction())
}
