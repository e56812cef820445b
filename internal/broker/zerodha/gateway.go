// Package zerodha implements the live collaborators on top of the Kite
// Connect REST and websocket APIs.
package zerodha

import (
	"context"
	"fmt"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/types"
)

// Kite order lifecycle states, as reported by order history.
const (
	kiteStatusComplete  = "COMPLETE"
	kiteStatusRejected  = "REJECTED"
	kiteStatusCancelled = "CANCELLED"
)

type Params struct {
	APIKey      string
	AccessToken string
	Product     string // e.g. MIS for intraday
}

// Gateway places, polls and cancels regular-variety orders via Kite
// Connect. All state lives at the broker; this type only translates.
type Gateway struct {
	kc      *kiteconnect.Client
	product string
}

var _ interfaces.OrderGateway = (*Gateway)(nil)

func NewGateway(p Params) *Gateway {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)

	product := p.Product
	if product == "" {
		product = kiteconnect.ProductMIS
	}
	return &Gateway{kc: kc, product: product}
}

func (g *Gateway) PlaceOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	params := kiteconnect.OrderParams{
		Exchange:        req.Instrument.Exchange,
		Tradingsymbol:   req.Instrument.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         g.product,
		TransactionType: string(req.Side),
		Quantity:        req.Qty,
		Tag:             req.Tag,
	}

	switch req.Kind {
	case types.OrderKindMarket:
		params.OrderType = kiteconnect.OrderTypeMarket
	case types.OrderKindLimit:
		params.OrderType = kiteconnect.OrderTypeLimit
		params.Price = req.Price
	case types.OrderKindStopLimit:
		params.OrderType = kiteconnect.OrderTypeSL
		params.Price = req.Price
		params.TriggerPrice = req.TriggerPrice
	default:
		return "", fmt.Errorf("unsupported order kind %q", req.Kind)
	}

	resp, err := g.kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return "", fmt.Errorf("place %s %s %s: %w", req.Kind, req.Side, req.Instrument.Symbol, err)
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("broker returned no order id for %s %s", req.Kind, req.Instrument.Symbol)
	}
	return resp.OrderID, nil
}

// OrderStatus reads the latest entry of the order's history. Anything that
// is not terminal at the broker maps to PENDING, including trigger-pending
// stop orders.
func (g *Gateway) OrderStatus(ctx context.Context, orderID string) (types.OrderStatus, error) {
	history, err := g.kc.GetOrderHistory(orderID)
	if err != nil {
		return "", fmt.Errorf("order history %s: %w", orderID, err)
	}
	if len(history) == 0 {
		return "", fmt.Errorf("order %s has no history", orderID)
	}

	switch history[len(history)-1].Status {
	case kiteStatusComplete:
		return types.OrderFilled, nil
	case kiteStatusRejected:
		return types.OrderRejected, nil
	case kiteStatusCancelled:
		return types.OrderCancelled, nil
	default:
		return types.OrderPending, nil
	}
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	if _, err := g.kc.CancelOrder(kiteconnect.VarietyRegular, orderID, nil); err != nil {
		return fmt.Errorf("cancel %s: %w", orderID, err)
	}
	return nil
}
