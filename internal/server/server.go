// Package server wires the watchdog services into HTTP servers with a shared
// middleware chain and lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/mbd888/watchdog/internal/classify"
	"github.com/mbd888/watchdog/internal/config"
	"github.com/mbd888/watchdog/internal/health"
	"github.com/mbd888/watchdog/internal/logging"
	"github.com/mbd888/watchdog/internal/mempool"
	"github.com/mbd888/watchdog/internal/metrics"
	"github.com/mbd888/watchdog/internal/oracle"
	"github.com/mbd888/watchdog/internal/ratelimit"
	"github.com/mbd888/watchdog/internal/realtime"
)

// Version is reported by health endpoints.
const Version = "0.1.0"

const drainTimeout = 30 * time.Second

// Server is one watchdog service: the AVS or the mempool simulator.
type Server struct {
	cfg     *config.Config
	service string
	logger  *slog.Logger

	router      *gin.Engine
	rateLimiter *ratelimit.Limiter
	health      *health.Registry

	// AVS
	oracle   oracle.Oracle
	signer   classify.Signer
	classify *classify.Service

	// Mempool
	fabricator mempool.Fabricator
	hub        *realtime.Hub
	wsRouter   *gin.Engine

	listeners      []*listener
	stopBackground context.CancelFunc
	shutdownDelay  time.Duration

	ready atomic.Bool
	addr  atomic.Value // net.Addr of the main listener once bound
}

// listener pairs a port with the handler served on it.
type listener struct {
	name    string
	port    string
	handler http.Handler
	srv     *http.Server
}

// Option configures the server
type Option func(*Server)

// WithLogger replaces the logger built from LOG_LEVEL and LOG_FORMAT.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithOracle sets the scoring oracle instead of building one from config.
func WithOracle(o oracle.Oracle) Option {
	return func(s *Server) { s.oracle = o }
}

// WithSigner sets the attestation signer instead of loading the configured key.
func WithSigner(signer classify.Signer) Option {
	return func(s *Server) { s.signer = signer }
}

// WithFabricator sets how simulated transactions are invented.
func WithFabricator(f mempool.Fabricator) Option {
	return func(s *Server) { s.fabricator = f }
}

// WithShutdownDelay sets how long Shutdown keeps serving after readiness
// drops, so load balancers stop routing first.
func WithShutdownDelay(d time.Duration) Option {
	return func(s *Server) { s.shutdownDelay = d }
}

func newServer(cfg *config.Config, service, port string, opts []Option) *Server {
	s := &Server{
		cfg:           cfg,
		service:       service,
		health:        health.NewRegistry(0),
		shutdownDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	}
	s.logger = logging.ForService(s.logger, service)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.useMiddleware()

	s.router.GET("/health", s.health.Handler(service, Version))
	s.router.GET("/health/live", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "alive"}) })
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	s.listeners = []*listener{{name: service, port: port, handler: s.router}}
	return s
}

// addListener serves h on an extra port alongside the main router.
func (s *Server) addListener(name, port string, h *gin.Engine) {
	s.listeners = append(s.listeners, &listener{name: name, port: port, handler: h})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Run binds every listener, serves until ctx is done, a listener fails, or
// SIGINT/SIGTERM arrives, then shuts down gracefully. A port that cannot be
// bound fails Run before anything is served.
func (s *Server) Run(ctx context.Context) error {
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	bound := make([]net.Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ln, err := net.Listen("tcp", ":"+l.port)
		if err != nil {
			for _, b := range bound {
				_ = b.Close()
			}
			return fmt.Errorf("%s listener on port %s: %w", l.name, l.port, err)
		}
		bound = append(bound, ln)
		l.srv = &http.Server{
			Handler:           l.handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	s.addr.Store(bound[0].Addr())

	bg, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	if s.hub != nil {
		go s.hub.Run(bg)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, l := range s.listeners {
		ln := bound[i]
		g.Go(func() error {
			s.logger.Info("listening", "listener", l.name, "addr", ln.Addr().String())
			if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s listener: %w", l.name, err)
			}
			return nil
		})
	}

	s.ready.Store(true)
	s.logger.Info("server ready")

	<-gctx.Done()
	if ctx.Err() != nil {
		s.logger.Info("shutdown requested", "cause", context.Cause(ctx))
	}

	shutdownErr := s.Shutdown()
	if err := g.Wait(); err != nil {
		return err
	}
	return shutdownErr
}

// Addr returns the main listener's address, nil before Run binds it.
func (s *Server) Addr() net.Addr {
	a, _ := s.addr.Load().(net.Addr)
	return a
}

// Shutdown drops readiness, waits out the shutdown delay, then drains every
// listener and stops background work.
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown", "delay", s.shutdownDelay)

	if s.shutdownDelay > 0 {
		time.Sleep(s.shutdownDelay)
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	var errs []error
	for _, l := range s.listeners {
		if l.srv == nil {
			continue
		}
		if err := l.srv.Shutdown(ctx); err != nil {
			s.logger.Error("listener shutdown failed", "listener", l.name, "error", err)
			errs = append(errs, err)
		}
	}

	// The hub closes every subscriber when its context ends.
	if s.stopBackground != nil {
		s.stopBackground()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.logger.Info("server stopped")
	return errors.Join(errs...)
}

// Router returns the main gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// WebSocketRouter returns the dedicated WebSocket router, nil for the AVS.
func (s *Server) WebSocketRouter() *gin.Engine {
	return s.wsRouter
}
