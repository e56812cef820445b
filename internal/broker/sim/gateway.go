// Package sim is a deterministic in-process stand-in for the brokerage.
// Orders never leave the process; fills are driven purely by the prices
// pushed through Tick, so tests can script exact market movement.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/types"
)

type order struct {
	inst    types.Instrument
	side    types.OrderSide
	kind    types.OrderKind
	qty     int
	price   float64
	trigger float64
	status  types.OrderStatus
}

// Gateway satisfies the OrderGateway contract against an in-memory book.
// Market orders fill immediately at the last marked price. Pending limit
// and stop-limit orders fill when a marked price crosses them, which gives
// OCO tests eventual PENDING->FILLED transitions without real market
// movement. Cancellation of an already-filled order is rejected, so the
// cancel-races-fill path is exercisable.
type Gateway struct {
	mu     sync.Mutex
	orders map[string]*order
	last   map[uint32]float64
}

var _ interfaces.OrderGateway = (*Gateway)(nil)

func NewGateway() *Gateway {
	return &Gateway{
		orders: make(map[string]*order),
		last:   make(map[uint32]float64),
	}
}

func (g *Gateway) PlaceOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	o := &order{
		inst:    req.Instrument,
		side:    req.Side,
		kind:    req.Kind,
		qty:     req.Qty,
		price:   req.Price,
		trigger: req.TriggerPrice,
		status:  types.OrderPending,
	}

	switch req.Kind {
	case types.OrderKindMarket:
		o.status = types.OrderFilled
		if last, ok := g.last[req.Instrument.Token]; ok {
			o.price = last
		}
	case types.OrderKindLimit:
		if req.Price <= 0 {
			return "", fmt.Errorf("limit order needs a price")
		}
	case types.OrderKindStopLimit:
		if req.TriggerPrice <= 0 {
			return "", fmt.Errorf("stop order needs a trigger price")
		}
	default:
		return "", fmt.Errorf("unsupported order kind %q", req.Kind)
	}

	id := uuid.NewString()
	g.orders[id] = o
	return id, nil
}

func (g *Gateway) OrderStatus(ctx context.Context, orderID string) (types.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return "", fmt.Errorf("unknown order %s", orderID)
	}
	return o.status, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	if o.status == types.OrderFilled {
		return fmt.Errorf("cancel rejected: order %s already filled", orderID)
	}
	o.status = types.OrderCancelled
	return nil
}

// Tick marks a new price for a token and fills any pending order it
// crosses. The feed calls this on every simulated tick; tests call it
// directly to drive scenarios.
func (g *Gateway) Tick(token uint32, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.last[token] = price
	for _, o := range g.orders {
		if o.status != types.OrderPending || o.inst.Token != token {
			continue
		}
		if crossed(o, price) {
			o.status = types.OrderFilled
		}
	}
}

// crossed implements one-sided price compatibility: a sell limit fills at
// or above its price, a buy limit at or below; stop triggers invert.
func crossed(o *order, price float64) bool {
	switch o.kind {
	case types.OrderKindLimit:
		if o.side == types.OrderSideSell {
			return price >= o.price
		}
		return price <= o.price
	case types.OrderKindStopLimit:
		if o.side == types.OrderSideSell {
			return price <= o.trigger
		}
		return price >= o.trigger
	}
	return false
}
