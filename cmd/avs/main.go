// Watchdog AVS - risk classification with signed attestations
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
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting watchdog avs",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateAVS(); err != nil {
		logger.Error("invalid avs config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"port", cfg.AVSPort,
		"strategy", cfg.Strategy,
	)

	ctx := context.Background()

	shutdownTracer, err := traces.Init(ctx, traces.Config{
		Service:     "watchdog-avs",
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

	// Create and run server
	srv, err := server.NewAVS(cfg)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
