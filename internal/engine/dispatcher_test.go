package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"bracket-trader/internal/broker/sim"
	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/positions"
	"bracket-trader/internal/types"
)

type stubResolver struct {
	err error
}

func (s *stubResolver) Resolve(_ context.Context, symbol string) (types.Instrument, error) {
	if s.err != nil {
		return types.Instrument{}, s.err
	}
	return types.Instrument{Token: 1, Symbol: symbol, Exchange: "NSE"}, nil
}

type countingFeed struct {
	subscribes []uint32
	failNext   int // number of upcoming Subscribe calls to reject
}

func (f *countingFeed) Start(context.Context) error { return nil }
func (f *countingFeed) Stop(context.Context)        {}
func (f *countingFeed) Subscribe(_ context.Context, inst types.Instrument) error {
	f.subscribes = append(f.subscribes, inst.Token)
	if f.failNext > 0 {
		f.failNext--
		return errors.New("ticker unavailable")
	}
	return nil
}

func newTestDispatcher(gw *stubGateway, feed *countingFeed, resolver *stubResolver) (*Dispatcher, *positions.Registry) {
	cache := marketdata.NewCache()
	cache.Update(1, 100)
	reg := positions.NewRegistry()
	d := NewDispatcher(gw, feed, resolver, cache, reg, nil, testConfig(),
		Limits{MaxQty: 100, MaxDistance: 50})
	return d, reg
}

func TestSubmitLaunchesWorker(t *testing.T) {
	gw := &stubGateway{statuses: map[string]types.OrderStatus{"target-2": types.OrderFilled}}
	d, _ := newTestDispatcher(gw, &countingFeed{}, &stubResolver{})

	id, err := d.Submit(context.Background(), "SBIN", types.SideLong, 10, 5, 10)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id == "" {
		t.Fatal("expected a trade id")
	}

	d.Wait()
	if got := gw.placed(); got != 3 {
		t.Errorf("expected entry + two exits, got %d orders", got)
	}
}

func TestSubmitDoesNotBlockOnWorkers(t *testing.T) {
	// Workers here poll forever (all orders stay PENDING); submission must
	// still return promptly for each of them.
	gw := &stubGateway{}
	d, reg := newTestDispatcher(gw, &countingFeed{}, &stubResolver{})

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := d.Submit(ctx, "SBIN", types.SideLong, 1, 5, 10); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("submissions blocked for %v", elapsed)
	}

	deadline := time.Now().Add(2 * time.Second)
	for reg.Len() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if reg.Len() != 5 {
		t.Fatalf("expected 5 concurrent open trades, got %d", reg.Len())
	}

	cancel()
	d.Wait()
}

func TestSubmitUnknownSymbol(t *testing.T) {
	resolver := &stubResolver{err: errors.New("not found")}
	d, _ := newTestDispatcher(&stubGateway{}, &countingFeed{}, resolver)

	if _, err := d.Submit(context.Background(), "NOPE", types.SideLong, 1, 5, 10); err == nil {
		t.Fatal("expected resolve error")
	}
}

func TestSubmitValidation(t *testing.T) {
	d, _ := newTestDispatcher(&stubGateway{}, &countingFeed{}, &stubResolver{})
	ctx := context.Background()

	cases := []struct {
		name     string
		side     types.Side
		qty      int
		sl, tgt  float64
	}{
		{"zero qty", types.SideLong, 0, 5, 10},
		{"negative stop", types.SideLong, 1, -5, 10},
		{"zero target", types.SideShort, 1, 5, 0},
		{"bad side", types.Side("SIDEWAYS"), 1, 5, 10},
		{"qty over limit", types.SideLong, 101, 5, 10},
		{"distance over limit", types.SideLong, 1, 51, 10},
	}
	for _, tc := range cases {
		if _, err := d.Submit(ctx, "SBIN", tc.side, tc.qty, tc.sl, tc.tgt); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestSubscribeOncePerInstrument(t *testing.T) {
	feed := &countingFeed{}
	gw := &stubGateway{statuses: map[string]types.OrderStatus{
		"target-2": types.OrderFilled,
		"target-5": types.OrderFilled,
	}}
	d, _ := newTestDispatcher(gw, feed, &stubResolver{})
	ctx := context.Background()

	// Run the trades back to back so the scripted order IDs line up.
	if _, err := d.Submit(ctx, "SBIN", types.SideLong, 1, 5, 10); err != nil {
		t.Fatal(err)
	}
	d.Wait()
	if _, err := d.Submit(ctx, "SBIN", types.SideShort, 1, 5, 10); err != nil {
		t.Fatal(err)
	}
	d.Wait()

	if len(feed.subscribes) != 1 {
		t.Errorf("expected one subscription for a repeated instrument, got %d", len(feed.subscribes))
	}
}

// A failed subscription must not poison the instrument: the next trade on
// the same symbol retries it, and only a successful attempt sticks.
func TestSubscribeRetriedAfterFailure(t *testing.T) {
	feed := &countingFeed{failNext: 1}
	gw := &stubGateway{statuses: map[string]types.OrderStatus{
		"target-2": types.OrderFilled,
		"target-5": types.OrderFilled,
		"target-8": types.OrderFilled,
	}}
	d, _ := newTestDispatcher(gw, feed, &stubResolver{})
	ctx := context.Background()

	// First subscription fails; the trade itself still proceeds because
	// the cache is pre-seeded.
	if _, err := d.Submit(ctx, "SBIN", types.SideLong, 1, 5, 10); err != nil {
		t.Fatal(err)
	}
	d.Wait()
	if _, err := d.Submit(ctx, "SBIN", types.SideLong, 1, 5, 10); err != nil {
		t.Fatal(err)
	}
	d.Wait()
	if _, err := d.Submit(ctx, "SBIN", types.SideLong, 1, 5, 10); err != nil {
		t.Fatal(err)
	}
	d.Wait()

	if got := len(feed.subscribes); got != 2 {
		t.Errorf("expected the failed attempt plus one successful retry, got %d", got)
	}
}

func TestEndToEndThroughSim(t *testing.T) {
	cache := marketdata.NewCache()
	reg := positions.NewRegistry()
	gw := sim.NewGateway()
	feed := sim.NewFeed(sim.FeedConfig{
		TickInterval: 5 * time.Millisecond,
		MinSeedPrice: 500,
		MaxSeedPrice: 3000,
	}, cache, gw)
	resolver := &sim.Resolver{Exchange: "NSE"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := feed.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer feed.Stop(ctx)

	d := NewDispatcher(gw, feed, resolver, cache, reg, LogSink{}, WorkerConfig{
		PollInterval: 5 * time.Millisecond,
		FillGrace:    10 * time.Millisecond,
	}, Limits{})

	// A tight bracket around a random-walking price resolves quickly one
	// way or the other.
	id, err := d.Submit(ctx, "TCS", types.SideLong, 10, 3, 3)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("trade never completed against the simulated market")
	}
	if rec, ok := reg.Get(id); ok {
		t.Errorf("completed trade should have left the registry, found %+v", rec)
	}
}
