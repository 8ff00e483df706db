// Watchdog mempool simulator - streams fabricated rug and front-run events
package main

import (
	"context"
	"os"
	"time"

	"github.com/mbd888/watchdog/internal/config"
	"github.com/mbd888/watchdog/internal/logging"
	"github.com/mbd888/watchdog/internal/server"
	"github.com/mbd888/watchdog/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting watchdog mempool",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"port", cfg.MempoolPort,
		"ws_port", cfg.MempoolWSPort,
	)

	ctx := context.Background()

	shutdownTracer, err := traces.Init(ctx, traces.Config{
		Service:     "watchdog-mempool",
		Version:     Version,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	}, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	srv, err := server.NewMempool(cfg)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
