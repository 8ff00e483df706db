package mempool

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mbd888/watchdog/internal/logging"
	"github.com/mbd888/watchdog/internal/metrics"
	"github.com/mbd888/watchdog/internal/realtime"
	"github.com/mbd888/watchdog/internal/traces"
)

// RugStatus acknowledges a trigger. It never reflects delivery outcome.
const RugStatus = "Rug attempt broadcasted, front-run triggered"

// ErrMissingToken is returned when a trigger names no token.
var ErrMissingToken = errors.New("mempool: token is required")

// Broadcaster delivers frames to current subscribers.
type Broadcaster interface {
	Broadcast(frames ...realtime.Frame) realtime.Delivery
}

// Simulator drives rug simulations.
type Simulator struct {
	broadcaster Broadcaster
	fabricator  Fabricator
	logger      *slog.Logger
}

// NewSimulator creates a simulator. A nil fabricator uses RandomFabricator.
func NewSimulator(b Broadcaster, f Fabricator, logger *slog.Logger) *Simulator {
	if f == nil {
		f = RandomFabricator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{broadcaster: b, fabricator: f, logger: logger}
}

// Events returns the two events of one trigger, in emission order.
func (s *Simulator) Events(token string) []Event {
	return []Event{
		NewRugAttempt(s.fabricator.TxHash().Hex(), s.fabricator.Originator().Hex(), token),
		NewFrontRunSuccess(token),
	}
}

// Rug broadcasts RugAttempt then FrontRunSuccess for token with a single
// broadcaster call and acknowledges without waiting for delivery.
func (s *Simulator) Rug(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}

	_, span := traces.StartSpan(ctx, "mempool.rug", traces.TokenAddress(token))
	defer span.End()

	events := s.Events(token)
	frames := make([]realtime.Frame, 0, len(events))
	for _, e := range events {
		f, err := e.frame(token)
		if err != nil {
			traces.RecordError(span, err)
			return "", err
		}
		frames = append(frames, f)
	}

	d := s.broadcaster.Broadcast(frames...)

	metrics.MempoolTriggersTotal.Inc()
	for _, e := range events {
		metrics.MempoolEventsTotal.WithLabelValues(string(e.Event)).Inc()
	}
	span.SetAttributes(traces.Subscribers(d.Subscribers))

	logging.L(ctx).Info("rug simulated",
		"token", token,
		"tx_hash", events[0].TxHash,
		"subscribers", d.Subscribers,
		"skipped", d.Skipped,
		"dropped", d.Dropped,
	)

	return RugStatus, nil
}
