// Package oracle provides the pluggable scoring strategies that map a
// decision context to a risk score.
//
// Two strategies are available. Heuristic applies fixed additive rules.
// ExternalModel asks a text-completion model for a bare integer and falls
// back to score 0 on any failure, so oracle unavailability never blocks a
// transaction.
package oracle

import (
	"context"
	"errors"

	"github.com/mbd888/watchdog/internal/risk"
)

// Oracle scores a decision context. Implementations must return a clamped
// score and never fail; failures are absorbed as score 0.
type Oracle interface {
	// Name identifies the strategy in logs, metrics, and traces.
	Name() string
	// Threshold is the verdict threshold that goes with this strategy.
	Threshold() risk.Threshold
	// Score returns a risk score in [0, 100].
	Score(ctx context.Context, dc risk.DecisionContext) risk.Score
}

var (
	// ErrUnparseable is returned when a completion has no integer in it.
	ErrUnparseable = errors.New("oracle: completion contains no integer score")
	// ErrEmptyCompletion is returned when a provider answers with no text.
	ErrEmptyCompletion = errors.New("oracle: empty completion")
	// ErrCircuitOpen means the model was skipped because its circuit is open.
	ErrCircuitOpen = errors.New("oracle: model circuit open")
)

// StatusError is a non-2xx answer from a completion provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "oracle: provider returned status " + itoa(e.StatusCode)
	}
	return "oracle: provider returned status " + itoa(e.StatusCode) + ": " + e.Body
}

// Completer is a single-shot text completion capability.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is one deterministic, short completion call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}
