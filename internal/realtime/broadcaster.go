package realtime

import (
	"log/slog"
	"sync/atomic"

	"github.com/mbd888/watchdog/internal/metrics"
)

// Delivery counts the outcome of one broadcast. Deliveries are best effort;
// nothing here is an error to the caller.
type Delivery struct {
	Subscribers int `json:"subscribers"`
	Frames      int `json:"frames"`
	Skipped     int `json:"skipped"`
	Dropped     int `json:"dropped"`
}

// Broadcaster fans frames out to a registry's subscribers.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger

	totalFrames atomic.Int64
}

// NewBroadcaster creates a broadcaster over registry.
func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{registry: registry, logger: logger}
}

// Broadcast queues frames, in order, on every subscriber open at the moment
// of the snapshot. Closed subscribers are skipped. A subscriber whose queue
// cannot take all the frames is unregistered. No locks on the registry are
// held while queuing.
func (b *Broadcaster) Broadcast(frames ...Frame) Delivery {
	var d Delivery
	if len(frames) == 0 {
		return d
	}

	for _, s := range b.registry.Snapshot() {
		result, n := s.enqueue(frames)
		switch result {
		case enqueued:
			d.Subscribers++
			d.Frames += n
		case skippedClosed:
			d.Skipped++
			metrics.DroppedDeliveriesTotal.WithLabelValues("closed").Inc()
		case queueFull:
			d.Dropped++
			metrics.DroppedDeliveriesTotal.WithLabelValues("slow").Inc()
			b.registry.Unregister(s.ID())
			b.logger.Info("dropping slow subscriber", "subscriber", s.ID())
		}
	}

	b.totalFrames.Add(int64(d.Frames))
	return d
}

// TotalFrames returns the number of frames queued since start.
func (b *Broadcaster) TotalFrames() int64 {
	return b.totalFrames.Load()
}
