package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/logger"
	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/positions"
	"bracket-trader/internal/trace"
	"bracket-trader/internal/types"
)

// Limits bounds what a single request may ask for. Zero values disable
// the corresponding check.
type Limits struct {
	MaxQty      int
	MaxDistance float64
}

// Dispatcher accepts trade requests and launches one worker per trade.
// Submit never waits on a worker; that non-blocking hand-off is the whole
// point of running brackets concurrently.
type Dispatcher struct {
	gw       interfaces.OrderGateway
	feed     interfaces.Feed
	resolver interfaces.InstrumentResolver
	cache    *marketdata.Cache
	reg      *positions.Registry
	events   EventSink
	cfg      WorkerConfig
	limits   Limits

	wg sync.WaitGroup

	mu         sync.Mutex
	subscribed map[uint32]bool
}

func NewDispatcher(gw interfaces.OrderGateway, feed interfaces.Feed, resolver interfaces.InstrumentResolver,
	cache *marketdata.Cache, reg *positions.Registry, events EventSink, cfg WorkerConfig, limits Limits) *Dispatcher {
	return &Dispatcher{
		gw:         gw,
		feed:       feed,
		resolver:   resolver,
		cache:      cache,
		reg:        reg,
		events:     events,
		cfg:        cfg,
		limits:     limits,
		subscribed: make(map[uint32]bool),
	}
}

// Submit resolves the symbol, subscribes its instrument to the feed and
// launches a worker for the trade. It returns the trade ID immediately;
// the worker runs until its trade reaches a terminal state or ctx is
// cancelled.
func (d *Dispatcher) Submit(ctx context.Context, symbol string, side types.Side, qty int, stopDist, targetDist float64) (string, error) {
	ctx, span := trace.StartSpan(ctx, "dispatcher.Submit")
	defer span.End()

	inst, err := d.resolver.Resolve(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", symbol, err)
	}

	req := types.TradeRequest{
		Instrument:     inst,
		Side:           side,
		Qty:            qty,
		StopDistance:   stopDist,
		TargetDistance: targetDist,
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	if d.limits.MaxQty > 0 && qty > d.limits.MaxQty {
		return "", fmt.Errorf("quantity %d exceeds limit %d", qty, d.limits.MaxQty)
	}
	if d.limits.MaxDistance > 0 && (stopDist > d.limits.MaxDistance || targetDist > d.limits.MaxDistance) {
		return "", fmt.Errorf("stop/target distance exceeds limit %.2f", d.limits.MaxDistance)
	}

	if err := d.subscribe(ctx, inst); err != nil {
		// Best-effort contract: the worker will still fail cleanly on price
		// resolution if no ticks ever arrive.
		logger.Warn(ctx, "Feed subscription failed",
			"symbol", inst.Symbol, "token", inst.Token, "error", err)
	}

	w := newWorker(uuid.NewString(), req, d.gw, d.cache, d.reg, d.events, d.cfg)
	logger.Info(ctx, "Launching trade worker",
		"trade_id", w.id, "symbol", inst.Symbol, "side", string(side),
		"qty", qty, "stop_distance", stopDist, "target_distance", targetDist)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		final := w.Run(ctx)
		logger.Info(ctx, "Trade worker finished",
			"trade_id", final.ID, "symbol", final.Instrument.Symbol,
			"status", string(final.Status), "needs_attention", final.NeedsAttention)
	}()

	return w.id, nil
}

// Wait blocks until every launched worker has finished. Used with context
// cancellation for graceful shutdown: cancel, then Wait.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// subscribe registers the instrument with the feed the first time it is
// traded. The token is only marked once Subscribe succeeds, so a failed
// attempt is retried on the next trade for the same instrument. Two
// concurrent first trades may both call Subscribe; Feed implementations
// are idempotent, so the duplicate is harmless.
func (d *Dispatcher) subscribe(ctx context.Context, inst types.Instrument) error {
	d.mu.Lock()
	already := d.subscribed[inst.Token]
	d.mu.Unlock()
	if already {
		return nil
	}
	if err := d.feed.Subscribe(ctx, inst); err != nil {
		return err
	}
	d.mu.Lock()
	d.subscribed[inst.Token] = true
	d.mu.Unlock()
	return nil
}
