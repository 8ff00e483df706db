package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mbd888/watchdog/internal/idgen"
	"github.com/mbd888/watchdog/internal/metrics"
	"github.com/mbd888/watchdog/internal/security"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4 * 1024
)

// normalCloseCodes are WebSocket close codes that indicate an expected disconnect.
var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

// Hub accepts WebSocket subscribers and serves their queues.
type Hub struct {
	registry    *Registry
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader
	logger      *slog.Logger
	queueSize   int
	done        chan struct{} // closed when Run begins shutdown; rejects late upgrades
}

// HubConfig configures a Hub.
type HubConfig struct {
	MaxSubscribers int
	QueueSize      int
	// AllowedOrigins lists browser origins allowed to connect. "*" allows
	// any. Requests without an Origin header are always allowed.
	AllowedOrigins []string
}

// NewHub creates a hub with its own registry and broadcaster.
func NewHub(cfg HubConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	registry := NewRegistry(cfg.MaxSubscribers)
	h := &Hub{
		registry:    registry,
		broadcaster: NewBroadcaster(registry, logger),
		logger:      logger,
		queueSize:   cfg.QueueSize,
		done:        make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     security.NewOrigins(cfg.AllowedOrigins).CheckWebSocket,
	}
	return h
}

// Registry returns the hub's subscriber registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Broadcaster returns the hub's broadcaster.
func (h *Hub) Broadcaster() *Broadcaster { return h.broadcaster }

// Run blocks until ctx is done, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("realtime hub started")

	<-ctx.Done()
	close(h.done)
	h.logger.Info("realtime hub shutting down, closing subscriber connections")
	n := h.registry.CloseAll()
	h.logger.Info("realtime hub stopped", "closed", n)
}

// HubStats summarizes hub activity.
type HubStats struct {
	RegistryStats
	TotalFrames int64 `json:"totalFrames"`
}

// Stats returns hub statistics
func (h *Hub) Stats() HubStats {
	return HubStats{
		RegistryStats: h.registry.Stats(),
		TotalFrames:   h.broadcaster.TotalFrames(),
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and registers a subscriber.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	if h.registry.Len() >= h.registry.max {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := NewSubscriber(idgen.WithPrefix("sub_"), h.queueSize)
	if err := h.registry.Register(sub); err != nil {
		h.logger.Warn("subscriber rejected", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.Info("subscriber connected", "subscriber", sub.ID(), "total", h.registry.Len())

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// readPump reads filter updates and keeps the connection alive.
func (h *Hub) readPump(conn *websocket.Conn, sub *Subscriber) {
	defer func() {
		if h.registry.Unregister(sub.ID()) {
			h.logger.Info("subscriber disconnected", "subscriber", sub.ID(), "total", h.registry.Len())
		}
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				h.logger.Debug("websocket read error", "subscriber", sub.ID(), "error", err)
			}
			return
		}

		var f Filter
		if err := json.Unmarshal(message, &f); err == nil {
			sub.SetFilter(f)
		}
	}
}

// writePump drains the subscriber's queue onto the connection. A write
// error drops the subscriber.
func (h *Hub) writePump(conn *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-sub.Queue():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				metrics.DroppedDeliveriesTotal.WithLabelValues("write_error").Inc()
				h.registry.Unregister(sub.ID())
				h.logger.Debug("websocket write error", "subscriber", sub.ID(), "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.registry.Unregister(sub.ID())
				return
			}
		}
	}
}
