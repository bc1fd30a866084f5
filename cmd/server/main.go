package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"passage_router/pkg/api"
	"passage_router/pkg/config"
	"passage_router/pkg/grid"
	"passage_router/pkg/logging"
	"passage_router/pkg/routing"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default: ./config.yaml if present)")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Grid.Global == "" {
		logger.Fatal("grid.global is required")
	}

	start := time.Now()

	// Load grids.
	logger.Info("loading grids",
		zap.String("global", cfg.Grid.Global),
		zap.String("regional", cfg.Grid.Regional),
	)
	loader := grid.NewLoader(
		grid.SourceFor(cfg.Grid.Global, nil),
		grid.SourceFor(cfg.Grid.Regional, nil),
		logger,
	)
	store, err := loader.Load(context.Background())
	if err != nil {
		logger.Fatal("failed to load grids", zap.Error(err))
	}

	opts := cfg.SearchOptions()
	pathfinder := routing.NewPathfinder(store, opts, logger)
	logger.Info("ready", zap.Duration("took", time.Since(start).Round(time.Millisecond)))

	// Setup HTTP server.
	srvCfg := api.DefaultConfig(cfg.Server.Addr())
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.RequestTimeout = cfg.Server.RequestTimeout
	srvCfg.CORSOrigin = cfg.Server.CORSOrigin
	if cfg.Server.MaxConcurrent > 0 {
		srvCfg.MaxConcurrent = cfg.Server.MaxConcurrent
	}

	handlers := api.NewHandlers(pathfinder, store, opts, logger)
	srv := api.NewServer(srvCfg, handlers, logger)

	if err := api.ListenAndServe(srv, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
