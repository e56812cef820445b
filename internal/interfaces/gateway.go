package interfaces

import (
	"context"

	"bracket-trader/internal/types"
)

// OrderGateway places, queries and cancels orders at the broker. Workers
// observe order state only through OrderStatus polling; they never mutate
// broker-side state except by requesting cancellation.
type OrderGateway interface {
	// PlaceOrder submits one order leg and returns the broker order ID.
	// A rejection is reported as an error with an empty ID.
	PlaceOrder(ctx context.Context, req types.OrderRequest) (string, error)
	OrderStatus(ctx context.Context, orderID string) (types.OrderStatus, error)
	CancelOrder(ctx context.Context, orderID string) error
}
