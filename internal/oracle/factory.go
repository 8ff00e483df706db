package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mbd888/watchdog/internal/circuitbreaker"
	"github.com/mbd888/watchdog/internal/config"
	"github.com/mbd888/watchdog/internal/risk"
)

// New selects the scoring strategy configured for this deployment.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Oracle, error) {
	switch cfg.Strategy {
	case config.StrategyHeuristic:
		return NewHeuristic(risk.Threshold(cfg.HeuristicThreshold)), nil

	case config.StrategyExternal:
		completer, err := newCompleter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ext := ExternalConfig{
			Threshold: risk.Threshold(cfg.ExternalThreshold),
			Timeout:   cfg.OracleTimeout,
			MaxTokens: cfg.ModelMaxTokens,
		}
		if cfg.OracleBreakerThreshold > 0 {
			ext.Breaker = circuitbreaker.New(cfg.ModelProvider+":"+cfg.ModelName,
				cfg.OracleBreakerThreshold, cfg.OracleBreakerCooldown)
		}
		return NewExternalModel(completer, ext, logger), nil

	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", cfg.Strategy)
	}
}

func newCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.ModelProvider {
	case config.ProviderOpenAI:
		return NewOpenAICompleter(OpenAIConfig{
			APIKey:  cfg.ModelAPIKey,
			BaseURL: cfg.ModelBaseURL,
			Model:   cfg.ModelName,
			Timeout: cfg.OracleTimeout,
		}), nil
	case config.ProviderGemini:
		var baseURL string
		if cfg.ModelBaseURL != config.DefaultOpenAIBaseURL {
			baseURL = cfg.ModelBaseURL
		}
		return NewGeminiCompleter(ctx, GeminiConfig{
			APIKey:  cfg.ModelAPIKey,
			Model:   cfg.ModelName,
			BaseURL: baseURL,
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}
}
