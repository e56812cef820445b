package interfaces

import (
	"context"

	"bracket-trader/internal/types"
)

// Feed streams last-traded prices into the market data cache. Subscribe is
// best-effort and idempotent; ticks arrive asynchronously after it returns.
type Feed interface {
	Start(ctx context.Context) error
	Subscribe(ctx context.Context, inst types.Instrument) error
	Stop(ctx context.Context)
}

// InstrumentResolver turns a user-typed symbol into a tradable instrument.
type InstrumentResolver interface {
	Resolve(ctx context.Context, symbol string) (types.Instrument, error)
}
