package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/watchdog/internal/config"
	"github.com/mbd888/watchdog/internal/mempool"
	"github.com/mbd888/watchdog/internal/realtime"
)

// NewMempool creates the mempool event broadcast simulator server. It serves
// REST and /ws on MEMPOOL_PORT and, unless disabled, a bare WebSocket
// listener on MEMPOOL_WS_PORT.
func NewMempool(cfg *config.Config, opts ...Option) (*Server, error) {
	s := newServer(cfg, "mempool", cfg.MempoolPort, opts)

	s.hub = realtime.NewHub(realtime.HubConfig{
		MaxSubscribers: cfg.MaxSubscribers,
		AllowedOrigins: cfg.CORSOrigins,
	}, s.logger)

	sim := mempool.NewSimulator(s.hub.Broadcaster(), s.fabricator, s.logger)
	handler := mempool.NewHandler(sim, s.hub)
	handler.RegisterRoutes(s.router)
	handler.RegisterRoutes(s.router.Group("/v1"))

	if cfg.MempoolWSPort != "" {
		if cfg.MempoolWSPort == cfg.MempoolPort {
			return nil, fmt.Errorf("MEMPOOL_WS_PORT must differ from MEMPOOL_PORT (%s)", cfg.MempoolPort)
		}
		s.wsRouter = gin.New()
		s.wsRouter.Use(s.recovery())
		s.wsRouter.GET("/", gin.WrapF(s.hub.HandleWebSocket))
		s.wsRouter.GET("/ws", gin.WrapF(s.hub.HandleWebSocket))
		s.addListener("websocket", cfg.MempoolWSPort, s.wsRouter)
	}

	s.health.Register("subscribers", func(ctx context.Context) (string, error) {
		st := s.hub.Stats()
		return fmt.Sprintf("%d connected, peak %d", st.Connected, st.Peak), nil
	})

	return s, nil
}
