package brokerobs

import (
	"context"

	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/logger"
	"bracket-trader/internal/metrics"
	"bracket-trader/internal/trace"
	"bracket-trader/internal/types"
)

// observableGateway wraps an OrderGateway with observability (logging & tracing)
type observableGateway struct {
	gw interfaces.OrderGateway
}

// Compile-time interface check
var _ interfaces.OrderGateway = (*observableGateway)(nil)

// Wrap wraps an order gateway with observability middleware
func Wrap(gw interfaces.OrderGateway) interfaces.OrderGateway {
	return &observableGateway{
		gw: gw,
	}
}

// PlaceOrder places an order with observability
func (og *observableGateway) PlaceOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.PlaceOrder")
	defer span.End()

	logger.Info(ctx, "Placing order",
		"symbol", req.Instrument.Symbol,
		"side", req.Side,
		"kind", req.Kind,
		"qty", req.Qty,
		"tag", req.Tag,
	)

	orderID, err := og.gw.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to place order", err,
			"symbol", req.Instrument.Symbol,
			"side", req.Side,
			"kind", req.Kind,
			"qty", req.Qty,
		)
		return "", err
	}

	metrics.OrderPlaced(string(req.Kind), string(req.Side))
	logger.Info(ctx, "Order placed successfully",
		"symbol", req.Instrument.Symbol,
		"order_id", orderID,
		"tag", req.Tag,
	)
	return orderID, nil
}

// OrderStatus fetches an order's status with observability
func (og *observableGateway) OrderStatus(ctx context.Context, orderID string) (types.OrderStatus, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.OrderStatus")
	defer span.End()

	status, err := og.gw.OrderStatus(ctx, orderID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch order status", err, "order_id", orderID)
		return "", err
	}

	logger.Debug(ctx, "Order status fetched", "order_id", orderID, "status", status)
	return status, nil
}

// CancelOrder cancels an order with observability
func (og *observableGateway) CancelOrder(ctx context.Context, orderID string) error {
	ctx, span := trace.StartSpan(ctx, "gateway.CancelOrder")
	defer span.End()

	logger.Info(ctx, "Cancelling order", "order_id", orderID)

	if err := og.gw.CancelOrder(ctx, orderID); err != nil {
		logger.ErrorWithErr(ctx, "Failed to cancel order", err, "order_id", orderID)
		return err
	}

	logger.Info(ctx, "Order cancelled successfully", "order_id", orderID)
	return nil
}
