package engine

import (
	"context"
	"time"

	"bracket-trader/internal/logger"
	"bracket-trader/internal/types"
)

// EventType labels one worker lifecycle transition.
type EventType string

const (
	EventEntryPlaced  EventType = "ENTRY_PLACED"
	EventEntryFilled  EventType = "ENTRY_FILLED"
	EventOCOSet       EventType = "OCO_SET"
	EventTargetHit    EventType = "TARGET_HIT"
	EventStopHit      EventType = "STOP_HIT"
	EventTradeFailed  EventType = "TRADE_FAILED"
	EventCancelFailed EventType = "CANCEL_FAILED"
)

// Event is one entry in the structured lifecycle stream consumed by the
// observability sinks. Price and OrderID are zero when not applicable.
type Event struct {
	Time    time.Time  `json:"time"`
	Type    EventType  `json:"type"`
	TradeID string     `json:"trade_id"`
	Symbol  string     `json:"symbol"`
	Token   uint32     `json:"token"`
	Side    types.Side `json:"side"`
	Qty     int        `json:"qty"`
	Price   float64    `json:"price,omitempty"`
	OrderID string     `json:"order_id,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

// EventSink receives lifecycle events. Publish must not block the caller
// for longer than an in-memory hand-off; slow consumers buffer internally.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

// Fanout delivers each event to every sink in order.
type Fanout []EventSink

func (f Fanout) Publish(ctx context.Context, ev Event) {
	for _, s := range f {
		s.Publish(ctx, ev)
	}
}

// LogSink mirrors the event stream onto the structured logger.
type LogSink struct{}

func (LogSink) Publish(ctx context.Context, ev Event) {
	args := []any{
		"event", string(ev.Type),
		"trade_id", ev.TradeID,
		"symbol", ev.Symbol,
		"side", string(ev.Side),
		"qty", ev.Qty,
	}
	if ev.Price != 0 {
		args = append(args, "price", ev.Price)
	}
	if ev.OrderID != "" {
		args = append(args, "order_id", ev.OrderID)
	}
	if ev.Reason != "" {
		args = append(args, "reason", ev.Reason)
	}

	switch ev.Type {
	case EventTradeFailed, EventCancelFailed:
		logger.Warn(ctx, "Trade lifecycle event", args...)
	default:
		logger.Info(ctx, "Trade lifecycle event", args...)
	}
}
