package zerodha

import (
	"context"
	"fmt"
	"strings"
	"sync"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/logger"
	"bracket-trader/internal/types"
)

// Resolver maps trading symbols to instrument tokens using the broker's
// instrument dump. The dump is large (~80k rows) so it is fetched once
// per process and indexed by symbol.
type Resolver struct {
	kc       *kiteconnect.Client
	exchange string

	mu      sync.Mutex
	bySym   map[string]types.Instrument
	loaded  bool
	loadErr error
}

var _ interfaces.InstrumentResolver = (*Resolver)(nil)

func NewResolver(p Params, exchange string) *Resolver {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return &Resolver{kc: kc, exchange: exchange}
}

func (r *Resolver) Resolve(ctx context.Context, symbol string) (types.Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return types.Instrument{}, fmt.Errorf("empty symbol")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		r.load(ctx)
		r.loaded = true
	}
	if r.loadErr != nil {
		return types.Instrument{}, fmt.Errorf("instrument dump unavailable: %w", r.loadErr)
	}
	inst, ok := r.bySym[symbol]
	if !ok {
		return types.Instrument{}, fmt.Errorf("unknown symbol %q on %s", symbol, r.exchange)
	}
	return inst, nil
}

func (r *Resolver) load(ctx context.Context) {
	dump, err := r.kc.GetInstrumentsByExchange(r.exchange)
	if err != nil {
		r.loadErr = err
		return
	}
	r.bySym = make(map[string]types.Instrument, len(dump))
	for _, in := range dump {
		r.bySym[in.Tradingsymbol] = types.Instrument{
			Token:    uint32(in.InstrumentToken),
			Symbol:   in.Tradingsymbol,
			Exchange: r.exchange,
		}
	}
	logger.Info(ctx, "Loaded instrument dump", "exchange", r.exchange, "count", len(r.bySym))
}
