package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bracket-trader/internal/engine"
	"bracket-trader/internal/eod"
	"bracket-trader/internal/logger"
	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/positions"
	"bracket-trader/internal/trace"
	"bracket-trader/internal/types"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}
	compressOldLogs(ctx)

	cache := marketdata.NewCache()
	reg := positions.NewRegistry()

	gw, feed, resolver := initializeBroker(ctx, cfg, cache)
	events := initializeEvents(reg)

	disp := engine.NewDispatcher(gw, feed, resolver, cache, reg, events,
		engine.WorkerConfig{
			PollInterval: cfg.PollInterval(),
			FillGrace:    cfg.FillGrace(),
		},
		engine.Limits{
			MaxQty:      cfg.Limits.MaxQty,
			MaxDistance: cfg.Limits.MaxDistance,
		},
	)

	if err := feed.Start(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Failed to start market data feed", err)
		os.Exit(1)
	}
	dash := initializeDashboard(cfg, cache, reg)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		intakeLoop(ctx, disp)
	}()

	logger.Info(ctx, "Trader started", "mode", cfg.Mode, "exchange", cfg.Exchange)

	eodTick := time.NewTicker(60 * time.Second)
	defer eodTick.Stop()

loop:
	for {
		select {
		case <-eodTick.C:
			if ok, _ := eod.ShouldRunNow(); ok {
				_, _ = eod.SummarizeToday()
			}
		case sig := <-sigc:
			logger.Info(ctx, "Signal received, shutting down", "signal", sig.String())
			break loop
		case <-done:
			logger.Info(ctx, "Input closed, shutting down")
			break loop
		}
	}

	// Workers observe the cancellation at their next poll and return
	// without touching resting orders.
	cancel()
	feed.Stop(context.Background())
	disp.Wait()

	if dash != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		_ = dash.Shutdown(shutdownCtx)
		stop()
	}

	_, _ = eod.SummarizeToday()

	open := reg.Snapshot()
	for _, rec := range open {
		logger.Warn(context.Background(), "Position left open at shutdown",
			"trade_id", rec.ID, "symbol", rec.Instrument.Symbol,
			"status", string(rec.Status), "needs_attention", rec.NeedsAttention)
	}

	_ = trace.Shutdown(context.Background())
	_ = logger.Shutdown(context.Background())
}

// intakeLoop reads trade requests from stdin, one per line:
//
//	SYMBOL SIDE QTY STOP_DISTANCE TARGET_DISTANCE
//
// e.g. "RELIANCE LONG 10 5 12". SIDE accepts LONG/SHORT or B/S.
// "exit" ends the session.
func intakeLoop(ctx context.Context, disp *engine.Dispatcher) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return
		}

		symbol, side, qty, stopDist, targetDist, err := parseIntake(line)
		if err != nil {
			logger.Warn(ctx, "Rejected trade request", "line", line, "error", err)
			continue
		}

		id, err := disp.Submit(ctx, symbol, side, qty, stopDist, targetDist)
		if err != nil {
			logger.Warn(ctx, "Trade request refused", "symbol", symbol, "error", err)
			continue
		}
		logger.Info(ctx, "Trade accepted", "trade_id", id, "symbol", symbol)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func parseIntake(line string) (symbol string, side types.Side, qty int, stopDist, targetDist float64, err error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		err = fmt.Errorf("want 5 fields: SYMBOL SIDE QTY STOP TARGET")
		return
	}
	symbol = strings.ToUpper(fields[0])

	switch strings.ToUpper(fields[1]) {
	case "LONG", "B", "BUY":
		side = types.SideLong
	case "SHORT", "S", "SELL":
		side = types.SideShort
	default:
		err = fmt.Errorf("invalid side %q", fields[1])
		return
	}

	qty, err = strconv.Atoi(fields[2])
	if err != nil {
		err = fmt.Errorf("invalid quantity %q", fields[2])
		return
	}
	stopDist, err = strconv.ParseFloat(fields[3], 64)
	if err != nil {
		err = fmt.Errorf("invalid stop distance %q", fields[3])
		return
	}
	targetDist, err = strconv.ParseFloat(fields[4], 64)
	if err != nil {
		err = fmt.Errorf("invalid target distance %q", fields[4])
		return
	}
	return
}
