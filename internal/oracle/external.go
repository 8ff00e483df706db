package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mbd888/watchdog/internal/circuitbreaker"
	"github.com/mbd888/watchdog/internal/logging"
	"github.com/mbd888/watchdog/internal/metrics"
	"github.com/mbd888/watchdog/internal/risk"
)

// DefaultMaxTokens keeps replies short; a score needs at most a few tokens.
const DefaultMaxTokens = 5

// ExternalModel asks a completion model for a score. It makes at most one
// call per Score and absorbs every failure as score 0.
type ExternalModel struct {
	completer Completer
	threshold risk.Threshold
	timeout   time.Duration
	maxTokens int
	breaker   *circuitbreaker.Breaker
	logger    *slog.Logger
}

// ExternalConfig configures an ExternalModel.
type ExternalConfig struct {
	Threshold risk.Threshold
	Timeout   time.Duration
	MaxTokens int
	// Breaker, when set, skips the model while its circuit is open.
	Breaker *circuitbreaker.Breaker
}

// NewExternalModel wraps a completer as a scoring oracle.
func NewExternalModel(c Completer, cfg ExternalConfig, logger *slog.Logger) *ExternalModel {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExternalModel{
		completer: c,
		threshold: cfg.Threshold,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
		breaker:   cfg.Breaker,
		logger:    logger,
	}
}

func (m *ExternalModel) Name() string { return "external" }

func (m *ExternalModel) Threshold() risk.Threshold { return m.threshold }

// CircuitState reports the model breaker's state; ok is false without a breaker.
func (m *ExternalModel) CircuitState() (state circuitbreaker.State, ok bool) {
	if m.breaker == nil {
		return circuitbreaker.StateClosed, false
	}
	return m.breaker.State(), true
}

// Score renders the audit prompt, makes one completion call bounded by the
// configured timeout, and parses the first integer of the reply. While the
// breaker is open the model is not called at all.
func (m *ExternalModel) Score(ctx context.Context, dc risk.DecisionContext) risk.Score {
	start := time.Now()
	if m.breaker != nil && !m.breaker.Allow() {
		return m.fail(ctx, ErrCircuitOpen, start)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	completion, err := m.completer.Complete(ctx, CompletionRequest{
		System:      SystemPrompt,
		Prompt:      RenderPrompt(dc),
		Temperature: 0,
		MaxTokens:   m.maxTokens,
	})
	m.record(err)
	if err != nil {
		return m.fail(ctx, err, start)
	}

	raw, err := ParseScore(completion)
	if err != nil {
		return m.fail(ctx, err, start)
	}
	return risk.Clamp(raw)
}

// record feeds the call outcome to the breaker. An empty or unparseable
// reply still proves the upstream is reachable.
func (m *ExternalModel) record(err error) {
	if m.breaker == nil {
		return
	}
	switch {
	case err == nil, errors.Is(err, ErrEmptyCompletion):
		m.breaker.RecordSuccess()
	case errors.Is(err, context.Canceled):
		m.breaker.Abandon()
	default:
		m.breaker.RecordFailure()
	}
}

func (m *ExternalModel) fail(ctx context.Context, err error, start time.Time) risk.Score {
	reason := failureReason(err)
	metrics.OracleFailuresTotal.WithLabelValues(m.Name(), reason).Inc()

	logger := m.logger
	if reqID := logging.RequestID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	logger.Warn("scoring oracle unavailable, using score 0",
		"strategy", m.Name(),
		"reason", reason,
		"latency", time.Since(start),
		"error", err,
	)
	return risk.MinScore
}

func failureReason(err error) string {
	var se *StatusError
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrUnparseable):
		return "unparseable"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty"
	case errors.As(err, &se):
		return "status"
	default:
		return "transport"
	}
}
