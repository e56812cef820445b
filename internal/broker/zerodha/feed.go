package zerodha

import (
	"context"
	"sync"
	"time"

	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/logger"
	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/metrics"
	"bracket-trader/internal/types"
)

// Feed streams last-traded prices from the Kite websocket into the cache.
// The tick callback does nothing beyond the guarded map write: it must
// never block on a slow consumer.
type Feed struct {
	ticker *kiteticker.Ticker
	cache  *marketdata.Cache

	mu     sync.Mutex
	tokens map[uint32]bool
}

var _ interfaces.Feed = (*Feed)(nil)

func NewFeed(p Params, cache *marketdata.Cache) *Feed {
	return &Feed{
		ticker: kiteticker.New(p.APIKey, p.AccessToken),
		cache:  cache,
		tokens: make(map[uint32]bool),
	}
}

func (f *Feed) Start(ctx context.Context) error {
	f.ticker.OnConnect(f.onConnect)
	f.ticker.OnTick(f.onTick)
	f.ticker.OnError(func(err error) {
		logger.ErrorWithErr(context.Background(), "Ticker error", err)
	})
	f.ticker.OnClose(func(code int, reason string) {
		logger.Warn(context.Background(), "Ticker closed", "code", code, "reason", reason)
	})
	f.ticker.OnReconnect(func(attempt int, delay time.Duration) {
		logger.Info(context.Background(), "Ticker reconnecting", "attempt", attempt, "delay", delay)
	})
	f.ticker.OnNoReconnect(func(attempt int) {
		logger.Error(context.Background(), "Ticker gave up reconnecting", "attempt", attempt)
	})

	go f.ticker.Serve()
	logger.Info(ctx, "Kite ticker started")
	return nil
}

func (f *Feed) Stop(ctx context.Context) {
	logger.Info(ctx, "Stopping Kite ticker")
	f.ticker.Stop()
}

// Subscribe registers the instrument's token with the websocket in LTP
// mode. Repeat subscriptions are no-ops; tokens are replayed on every
// reconnect from onConnect.
func (f *Feed) Subscribe(ctx context.Context, inst types.Instrument) error {
	f.mu.Lock()
	already := f.tokens[inst.Token]
	if !already {
		f.tokens[inst.Token] = true
	}
	f.mu.Unlock()
	if already {
		return nil
	}

	if err := f.ticker.Subscribe([]uint32{inst.Token}); err != nil {
		return err
	}
	if err := f.ticker.SetMode(kiteticker.ModeLTP, []uint32{inst.Token}); err != nil {
		return err
	}
	logger.Info(ctx, "Subscribed to live quotes", "symbol", inst.Symbol, "token", inst.Token)
	return nil
}

func (f *Feed) onConnect() {
	f.mu.Lock()
	tokens := make([]uint32, 0, len(f.tokens))
	for t := range f.tokens {
		tokens = append(tokens, t)
	}
	f.mu.Unlock()

	ctx := context.Background()
	logger.Info(ctx, "Ticker connected", "subscriptions", len(tokens))
	if len(tokens) == 0 {
		return
	}
	if err := f.ticker.Subscribe(tokens); err != nil {
		logger.ErrorWithErr(ctx, "Resubscribe failed", err)
		return
	}
	if err := f.ticker.SetMode(kiteticker.ModeLTP, tokens); err != nil {
		logger.ErrorWithErr(ctx, "Set mode failed", err)
	}
}

func (f *Feed) onTick(tick models.Tick) {
	// A malformed tick is dropped here and nowhere else; one bad frame
	// must never kill the feed.
	if tick.InstrumentToken == 0 || tick.LastPrice <= 0 {
		logger.Debug(context.Background(), "Discarding malformed tick",
			"token", tick.InstrumentToken, "last_price", tick.LastPrice)
		return
	}
	f.cache.Update(tick.InstrumentToken, tick.LastPrice)
	metrics.TickIngested()
}
