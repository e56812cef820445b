package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/positions"
	"bracket-trader/internal/types"
)

// testEnv bundles the dashboard with its backing state.
type testEnv struct {
	router http.Handler
	cache  *marketdata.Cache
	reg    *positions.Registry
}

func newTestEnv() *testEnv {
	cache := marketdata.NewCache()
	reg := positions.NewRegistry()
	s := NewServer(":0", cache, reg)
	return &testEnv{router: s.router(), cache: cache, reg: reg}
}

func (env *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv()
	rr := env.get(t, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body map[string]string
	decodeJSON(t, rr, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestQuotes(t *testing.T) {
	env := newTestEnv()
	env.cache.Update(11, 2450.5)
	env.cache.Update(22, 132.1)

	rr := env.get(t, "/api/quotes")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var quotes []quoteResponse
	decodeJSON(t, rr, &quotes)
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}
	byToken := map[uint32]float64{}
	for _, q := range quotes {
		byToken[q.Token] = q.LastPrice
	}
	if byToken[11] != 2450.5 || byToken[22] != 132.1 {
		t.Errorf("unexpected quotes: %v", byToken)
	}
}

func TestPositionsEmpty(t *testing.T) {
	env := newTestEnv()
	rr := env.get(t, "/api/positions")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var out []positionResponse
	decodeJSON(t, rr, &out)
	if len(out) != 0 {
		t.Errorf("got %d positions, want 0", len(out))
	}
}

func TestPositionsWithPnL(t *testing.T) {
	env := newTestEnv()
	inst := types.Instrument{Token: 11, Symbol: "RELIANCE", Exchange: "NSE"}
	env.reg.Put(types.TradeRecord{
		ID:          "t1",
		Instrument:  inst,
		Side:        types.SideLong,
		Qty:         10,
		Entry:       100,
		StopPrice:   95,
		TargetPrice: 110,
		Status:      types.TradeMonitoring,
		OpenedAt:    time.Now(),
	})
	env.cache.Update(11, 104)

	rr := env.get(t, "/api/positions")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var out []positionResponse
	decodeJSON(t, rr, &out)
	if len(out) != 1 {
		t.Fatalf("got %d positions, want 1", len(out))
	}
	p := out[0]
	if p.Symbol != "RELIANCE" || p.Status != types.TradeMonitoring {
		t.Errorf("unexpected position: %+v", p)
	}
	if p.LastPrice == nil || *p.LastPrice != 104 {
		t.Fatalf("last price = %v, want 104", p.LastPrice)
	}
	if p.UnrealizedPnL == nil || *p.UnrealizedPnL != 40 {
		t.Errorf("pnl = %v, want 40", p.UnrealizedPnL)
	}
}

func TestPositionsWithoutQuote(t *testing.T) {
	env := newTestEnv()
	inst := types.Instrument{Token: 99, Symbol: "INFY", Exchange: "NSE"}
	env.reg.Put(types.TradeRecord{
		ID:         "t2",
		Instrument: inst,
		Side:       types.SideShort,
		Qty:        5,
		Entry:      1500,
		Status:     types.TradeMonitoring,
		OpenedAt:   time.Now(),
	})

	rr := env.get(t, "/api/positions")
	var out []positionResponse
	decodeJSON(t, rr, &out)
	if len(out) != 1 {
		t.Fatalf("got %d positions, want 1", len(out))
	}
	if out[0].LastPrice != nil || out[0].UnrealizedPnL != nil {
		t.Errorf("expected null pnl without a quote, got %+v", out[0])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv()
	rr := env.get(t, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Body.Len() == 0 {
		t.Error("empty metrics body")
	}
}
