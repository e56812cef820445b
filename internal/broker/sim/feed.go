package sim

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"bracket-trader/internal/interfaces"
	"bracket-trader/internal/logger"
	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/metrics"
	"bracket-trader/internal/types"
)

// FeedConfig shapes the simulated market.
type FeedConfig struct {
	TickInterval time.Duration
	MinSeedPrice float64
	MaxSeedPrice float64
}

// Feed random-walks a price per subscribed token and pushes each tick into
// the cache and the sim gateway, mirroring how the live websocket feed
// fans ticks out.
type Feed struct {
	cfg   FeedConfig
	cache *marketdata.Cache
	gw    *Gateway
	rng   *rand.Rand

	mu     sync.Mutex
	prices map[uint32]float64
	cancel context.CancelFunc
}

var _ interfaces.Feed = (*Feed)(nil)

func NewFeed(cfg FeedConfig, cache *marketdata.Cache, gw *Gateway) *Feed {
	return &Feed{
		cfg:    cfg,
		cache:  cache,
		gw:     gw,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		prices: make(map[uint32]float64),
	}
}

func (f *Feed) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	go f.run(ctx)
	logger.Info(ctx, "Simulated feed started", "tick_interval", f.cfg.TickInterval)
	return nil
}

func (f *Feed) Stop(ctx context.Context) {
	if f.cancel != nil {
		f.cancel()
	}
}

// Subscribe seeds a starting price for the token and publishes it at once
// so workers have a quote before the first tick lands. Idempotent.
func (f *Feed) Subscribe(ctx context.Context, inst types.Instrument) error {
	f.mu.Lock()
	price, ok := f.prices[inst.Token]
	if !ok {
		spread := f.cfg.MaxSeedPrice - f.cfg.MinSeedPrice
		price = f.cfg.MinSeedPrice + f.rng.Float64()*spread
		f.prices[inst.Token] = price
	}
	f.mu.Unlock()

	if !ok {
		f.publish(inst.Token, price)
		logger.Debug(ctx, "Simulated feed subscribed",
			"symbol", inst.Symbol, "token", inst.Token, "seed_price", price)
	}
	return nil
}

func (f *Feed) run(ctx context.Context) {
	tick := time.NewTicker(f.cfg.TickInterval)
	defer tick.Stop()

	steps := []float64{-2, -1, -0.5, 0.5, 1, 2}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		f.mu.Lock()
		moves := make(map[uint32]float64, len(f.prices))
		for token := range f.prices {
			f.prices[token] += steps[f.rng.Intn(len(steps))]
			if f.prices[token] < 1 {
				f.prices[token] = 1
			}
			moves[token] = f.prices[token]
		}
		f.mu.Unlock()

		for token, price := range moves {
			f.publish(token, price)
		}
	}
}

func (f *Feed) publish(token uint32, price float64) {
	f.cache.Update(token, price)
	f.gw.Tick(token, price)
	metrics.TickIngested()
}

// Resolver fabricates stable instruments from symbols so SIM mode needs no
// reference-data service. The token is a hash of the symbol, which keeps
// repeat lookups consistent within and across runs.
type Resolver struct {
	Exchange string
}

var _ interfaces.InstrumentResolver = (*Resolver)(nil)

func (r *Resolver) Resolve(ctx context.Context, symbol string) (types.Instrument, error) {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return types.Instrument{
		Token:    h.Sum32(),
		Symbol:   symbol,
		Exchange: r.Exchange,
	}, nil
}
