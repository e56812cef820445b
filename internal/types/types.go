package types

import (
	"fmt"
	"time"
)

// Side is the direction of a trade.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// OrderSide is the direction of a single order leg.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// EntrySide returns the order side that opens a position.
func (s Side) EntrySide() OrderSide {
	if s == SideShort {
		return OrderSideSell
	}
	return OrderSideBuy
}

// ExitSide returns the order side that closes a position.
func (s Side) ExitSide() OrderSide {
	if s == SideShort {
		return OrderSideBuy
	}
	return OrderSideSell
}

type OrderKind string

const (
	OrderKindMarket    OrderKind = "MARKET"
	OrderKindLimit     OrderKind = "LIMIT"
	OrderKindStopLimit OrderKind = "SL"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRejected  OrderStatus = "REJECTED"
)

type TradeStatus string

const (
	TradeEntering     TradeStatus = "ENTERING"
	TradeMonitoring   TradeStatus = "MONITORING"
	TradeClosedProfit TradeStatus = "CLOSED_PROFIT"
	TradeClosedLoss   TradeStatus = "CLOSED_LOSS"
	TradeFailed       TradeStatus = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s TradeStatus) Terminal() bool {
	return s == TradeClosedProfit || s == TradeClosedLoss || s == TradeFailed
}

// Instrument identifies one tradable scrip. Immutable once resolved;
// many workers may hold the same value concurrently.
type Instrument struct {
	Token    uint32 `json:"token"`
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

// TradeRequest is the user-supplied intent for one bracket trade.
// Distances are in price points relative to the realized entry price.
type TradeRequest struct {
	Instrument     Instrument
	Side           Side
	Qty            int
	StopDistance   float64
	TargetDistance float64
}

func (r TradeRequest) Validate() error {
	if r.Instrument.Symbol == "" {
		return fmt.Errorf("trade request has no instrument")
	}
	if r.Side != SideLong && r.Side != SideShort {
		return fmt.Errorf("invalid side %q: must be LONG or SHORT", r.Side)
	}
	if r.Qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", r.Qty)
	}
	if r.StopDistance <= 0 {
		return fmt.Errorf("stop distance must be positive, got %.2f", r.StopDistance)
	}
	if r.TargetDistance <= 0 {
		return fmt.Errorf("target distance must be positive, got %.2f", r.TargetDistance)
	}
	return nil
}

// TradeRecord is the live state of one bracket trade. Exactly one worker
// owns a record; the registry only ever sees whole-value copies.
type TradeRecord struct {
	ID             string      `json:"id"`
	Instrument     Instrument  `json:"instrument"`
	Side           Side        `json:"side"`
	Qty            int         `json:"qty"`
	Entry          float64     `json:"entry"`
	StopPrice      float64     `json:"stop_price"`
	TargetPrice    float64     `json:"target_price"`
	StopOrderID    string      `json:"stop_order_id"`
	TargetOrderID  string      `json:"target_order_id"`
	Status         TradeStatus `json:"status"`
	NeedsAttention bool        `json:"needs_attention"`
	Reason         string      `json:"reason,omitempty"`
	OpenedAt       time.Time   `json:"opened_at"`
}

// UnrealizedPnL values the open position against the given last price.
func (t TradeRecord) UnrealizedPnL(last float64) float64 {
	if t.Entry == 0 || last == 0 {
		return 0
	}
	if t.Side == SideShort {
		return (t.Entry - last) * float64(t.Qty)
	}
	return (last - t.Entry) * float64(t.Qty)
}

// OrderRequest is one order leg handed to the gateway. Price is used by
// LIMIT and SL orders; TriggerPrice only by SL.
type OrderRequest struct {
	Instrument   Instrument
	Side         OrderSide
	Kind         OrderKind
	Qty          int
	Price        float64
	TriggerPrice float64
	Tag          string
}
