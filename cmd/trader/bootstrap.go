package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"bracket-trader/internal/broker/brokerobs"
	"bracket-trader/internal/broker/sim"
	"bracket-trader/internal/broker/zerodha"
	"bracket-trader/internal/dashboard"
	"bracket-trader/internal/engine"
	"bracket-trader/internal/eod"
	"bracket-trader/internal/eod/eodobs"
	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/logger"
	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/positions"
	"bracket-trader/internal/store"
	"bracket-trader/internal/trace"
	"bracket-trader/internal/tradelog"
)

// initializeSystem initializes the environment, logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	// Initialize EOD summarizer with observability
	eod.SetDefaultSummarizer(eodobs.Wrap(eod.NewSummarizer()))

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeBroker builds the order gateway, market data feed and symbol
// resolver for the configured mode. The gateway is wrapped with
// observability middleware in both modes.
func initializeBroker(ctx context.Context, cfg *store.Config, cache *marketdata.Cache) (
	interfaces.OrderGateway, interfaces.Feed, interfaces.InstrumentResolver,
) {
	if cfg.Mode == "SIM" {
		logger.Warn(ctx, "Running in SIM mode - orders are simulated against a random walk")
		gw := sim.NewGateway()
		feed := sim.NewFeed(sim.FeedConfig{
			TickInterval: cfg.SimTickInterval(),
			MinSeedPrice: cfg.Sim.MinSeedPrice,
			MaxSeedPrice: cfg.Sim.MaxSeedPrice,
		}, cache, gw)
		return brokerobs.Wrap(gw), feed, &sim.Resolver{Exchange: cfg.Exchange}
	}

	params := zerodha.Params{
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Product:     cfg.Product,
	}
	logger.Info(ctx, "Using live Zerodha order gateway", "exchange", cfg.Exchange, "product", cfg.Product)
	gw := zerodha.NewGateway(params)
	feed := zerodha.NewFeed(params, cache)
	resolver := zerodha.NewResolver(params, cfg.Exchange)
	return brokerobs.Wrap(gw), feed, resolver
}

// initializeEvents builds the lifecycle event fanout: structured log
// mirror, daily JSON trade journal and Prometheus counters.
func initializeEvents(reg *positions.Registry) engine.EventSink {
	return engine.Fanout{
		engine.LogSink{},
		tradelog.Sink{},
		engine.NewMetricsSink(reg),
	}
}

// initializeDashboard starts the read-only HTTP view when enabled
func initializeDashboard(cfg *store.Config, cache *marketdata.Cache, reg *positions.Registry) *dashboard.Server {
	if !cfg.Dashboard.Enabled {
		return nil
	}
	srv := dashboard.NewServer(cfg.Dashboard.Addr, cache, reg)
	srv.Start()
	return srv
}
