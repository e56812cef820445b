package engine

import (
	"context"
	"fmt"
	"time"

	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/logger"
	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/positions"
	"bracket-trader/internal/trace"
	"bracket-trader/internal/types"
)

// One grace-period wait plus one retry before giving up on the entry price.
const entryPriceAttempts = 2

// WorkerConfig carries the timing knobs. Both directly trade broker API
// load against exit latency, so they are configuration, not constants.
type WorkerConfig struct {
	PollInterval time.Duration // cadence of the exit fill poll loop
	FillGrace    time.Duration // wait before reading the entry price from the cache
}

// worker runs the lifecycle of a single bracket trade:
//
//	ENTERING -> MONITORING -> CLOSED_PROFIT | CLOSED_LOSS
//	         \-> FAILED
//
// It owns its TradeRecord exclusively and only ever hands whole-value
// copies to the registry.
type worker struct {
	id     string
	req    types.TradeRequest
	gw     interfaces.OrderGateway
	cache  *marketdata.Cache
	reg    *positions.Registry
	events EventSink
	cfg    WorkerConfig
}

func newWorker(id string, req types.TradeRequest, gw interfaces.OrderGateway,
	cache *marketdata.Cache, reg *positions.Registry, events EventSink, cfg WorkerConfig) *worker {
	return &worker{id: id, req: req, gw: gw, cache: cache, reg: reg, events: events, cfg: cfg}
}

// Run drives the trade to a terminal state. It returns the final record;
// callers must not retain a reference into the worker afterwards.
func (w *worker) Run(ctx context.Context) types.TradeRecord {
	ctx, span := trace.StartSpan(ctx, "worker.Run")
	defer span.End()

	rec := types.TradeRecord{
		ID:         w.id,
		Instrument: w.req.Instrument,
		Side:       w.req.Side,
		Qty:        w.req.Qty,
		Status:     types.TradeEntering,
		OpenedAt:   time.Now(),
	}
	w.reg.Put(rec)
	defer func() { w.closeOut(rec) }()

	// Market entry. A rejection or missing order ID is fatal to this trade:
	// no exit legs are ever placed.
	entryID, err := w.gw.PlaceOrder(ctx, types.OrderRequest{
		Instrument: w.req.Instrument,
		Side:       w.req.Side.EntrySide(),
		Kind:       types.OrderKindMarket,
		Qty:        w.req.Qty,
		Tag:        "entry",
	})
	if err != nil || entryID == "" {
		if err == nil {
			err = fmt.Errorf("gateway returned no order id")
		}
		return w.fail(ctx, &rec, fmt.Errorf("%w: %v", ErrEntryRejected, err))
	}
	w.emit(ctx, rec, EventEntryPlaced, 0, entryID, "")

	entry, ok := w.resolveEntryPrice(ctx)
	if !ok {
		if ctx.Err() != nil {
			// Shut down mid-entry: report the abort, leave the order as-is.
			return w.fail(ctx, &rec, fmt.Errorf("%w: shutdown during price resolution", ErrPriceUnresolved))
		}
		return w.fail(ctx, &rec, ErrPriceUnresolved)
	}
	rec.Entry = entry
	w.emit(ctx, rec, EventEntryFilled, entry, entryID, "")

	stop, target := bracketPrices(w.req.Side, entry, w.req.StopDistance, w.req.TargetDistance)
	rec.StopPrice = stop
	rec.TargetPrice = target
	exitSide := w.req.Side.ExitSide()

	targetID, err := w.gw.PlaceOrder(ctx, types.OrderRequest{
		Instrument: w.req.Instrument,
		Side:       exitSide,
		Kind:       types.OrderKindLimit,
		Qty:        w.req.Qty,
		Price:      target,
		Tag:        "target",
	})
	if err != nil || targetID == "" {
		return w.fail(ctx, &rec, fmt.Errorf("%w: target leg: %v", ErrExitLegRejected, err))
	}
	rec.TargetOrderID = targetID

	stopID, err := w.gw.PlaceOrder(ctx, types.OrderRequest{
		Instrument:   w.req.Instrument,
		Side:         exitSide,
		Kind:         types.OrderKindStopLimit,
		Qty:          w.req.Qty,
		Price:        stop,
		TriggerPrice: stop,
		Tag:          "stoploss",
	})
	if err != nil || stopID == "" {
		// One leg is live with no counterpart. Best effort: pull the placed
		// target so the position is not left with a lone exit, and flag the
		// record for manual intervention either way.
		rec.NeedsAttention = true
		if cancelErr := w.gw.CancelOrder(ctx, targetID); cancelErr != nil {
			w.emit(ctx, rec, EventCancelFailed, 0, targetID, cancelErr.Error())
		}
		return w.fail(ctx, &rec, fmt.Errorf("%w: stop leg: %v", ErrExitLegRejected, err))
	}
	rec.StopOrderID = stopID

	rec.Status = types.TradeMonitoring
	w.reg.Put(rec)
	w.emit(ctx, rec, EventOCOSet, 0, "", fmt.Sprintf("stop=%.2f target=%.2f", stop, target))

	rec = w.monitor(ctx, rec)
	return rec
}

// closeOut settles the registry entry for a finished trade. Trades needing
// manual intervention, and trades interrupted by shutdown with live orders,
// stay visible in the registry; everything else leaves with its worker.
// Idempotent: it also runs deferred so every exit path settles.
func (w *worker) closeOut(rec types.TradeRecord) {
	if rec.NeedsAttention || !rec.Status.Terminal() {
		w.reg.Put(rec)
	} else {
		w.reg.Remove(rec.ID)
	}
}

// monitor polls both exit legs until one fills or shutdown is signalled.
// The target branch is evaluated first on every iteration: if both legs
// report FILLED on the same poll, the target wins, deterministically.
func (w *worker) monitor(ctx context.Context, rec types.TradeRecord) types.TradeRecord {
	tick := time.NewTicker(w.cfg.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			// Leave-positions-as-is shutdown: no further order activity.
			logger.Info(ctx, "Shutdown while monitoring, leaving orders in place",
				"trade_id", rec.ID, "symbol", rec.Instrument.Symbol)
			return rec
		case <-tick.C:
		}

		targetStatus, err := w.gw.OrderStatus(ctx, rec.TargetOrderID)
		if err != nil {
			logger.Warn(ctx, "Target order status check failed",
				"trade_id", rec.ID, "order_id", rec.TargetOrderID, "error", err)
			continue
		}
		if targetStatus == types.OrderFilled {
			w.cancelLeg(ctx, &rec, rec.StopOrderID)
			rec.Status = types.TradeClosedProfit
			// Settle the registry first so sinks observe the post-close state.
			w.closeOut(rec)
			w.emit(ctx, rec, EventTargetHit, rec.TargetPrice, rec.TargetOrderID, "")
			return rec
		}

		stopStatus, err := w.gw.OrderStatus(ctx, rec.StopOrderID)
		if err != nil {
			logger.Warn(ctx, "Stop order status check failed",
				"trade_id", rec.ID, "order_id", rec.StopOrderID, "error", err)
			continue
		}
		if stopStatus == types.OrderFilled {
			w.cancelLeg(ctx, &rec, rec.TargetOrderID)
			rec.Status = types.TradeClosedLoss
			w.closeOut(rec)
			w.emit(ctx, rec, EventStopHit, rec.StopPrice, rec.StopOrderID, "")
			return rec
		}
	}
}

// cancelLeg requests cancellation of the losing leg exactly once. A failed
// cancel means the position may carry duplicate exits, so the record is
// flagged for manual intervention; there is no automatic retry.
func (w *worker) cancelLeg(ctx context.Context, rec *types.TradeRecord, orderID string) {
	if err := w.gw.CancelOrder(ctx, orderID); err != nil {
		rec.NeedsAttention = true
		rec.Reason = fmt.Sprintf("%v: %v", ErrCancelRejected, err)
		w.emit(ctx, *rec, EventCancelFailed, 0, orderID, err.Error())
	}
}

// resolveEntryPrice waits one grace period for the feed to reflect the
// fill, reads the cache, and retries once. It never falls back to a
// default price: an unknown price fails the trade.
func (w *worker) resolveEntryPrice(ctx context.Context) (float64, bool) {
	for attempt := 0; attempt < entryPriceAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return 0, false
		case <-time.After(w.cfg.FillGrace):
		}
		if price, ok := w.cache.Get(w.req.Instrument.Token); ok {
			return price, true
		}
		logger.Debug(ctx, "No quote yet for entry price",
			"symbol", w.req.Instrument.Symbol, "token", w.req.Instrument.Token, "attempt", attempt+1)
	}
	return 0, false
}

func (w *worker) fail(ctx context.Context, rec *types.TradeRecord, err error) types.TradeRecord {
	rec.Status = types.TradeFailed
	rec.Reason = err.Error()
	w.closeOut(*rec)
	w.emit(ctx, *rec, EventTradeFailed, 0, "", err.Error())
	return *rec
}

func (w *worker) emit(ctx context.Context, rec types.TradeRecord, typ EventType, price float64, orderID, reason string) {
	if w.events == nil {
		return
	}
	w.events.Publish(ctx, Event{
		Time:    time.Now(),
		Type:    typ,
		TradeID: rec.ID,
		Symbol:  rec.Instrument.Symbol,
		Token:   rec.Instrument.Token,
		Side:    rec.Side,
		Qty:     rec.Qty,
		Price:   price,
		OrderID: orderID,
		Reason:  reason,
	})
}

// bracketPrices computes the absolute stop and target from the realized
// entry. Long: stop below, target above; short inverts symmetrically.
func bracketPrices(side types.Side, entry, stopDist, targetDist float64) (stop, target float64) {
	if side == types.SideShort {
		return entry + stopDist, entry - targetDist
	}
	return entry - stopDist, entry + targetDist
}
