// Package dashboard serves a small read-only HTTP view over the running
// trader: live quotes, open bracket positions with unrealized P&L, and
// the Prometheus metrics endpoint.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bracket-trader/internal/logger"
	"bracket-trader/internal/marketdata"
	"bracket-trader/internal/positions"
	"bracket-trader/internal/types"
)

type Server struct {
	cache *marketdata.Cache
	reg   *positions.Registry
	srv   *http.Server
}

func NewServer(addr string, cache *marketdata.Cache, reg *positions.Registry) *Server {
	s := &Server{cache: cache, reg: reg}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/quotes", s.getQuotes)
	r.Get("/api/positions", s.getPositions)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start runs the listener in the background; ErrServerClosed from a
// clean Shutdown is not reported.
func (s *Server) Start() {
	go func() {
		logger.Info(context.Background(), "Dashboard listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(context.Background(), "Dashboard server failed", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// quoteResponse is the JSON response for GET /api/quotes.
type quoteResponse struct {
	Token     uint32  `json:"token"`
	LastPrice float64 `json:"last_price"`
}

func (s *Server) getQuotes(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	out := make([]quoteResponse, 0, len(snap))
	for token, price := range snap {
		out = append(out, quoteResponse{Token: token, LastPrice: price})
	}
	writeJSON(w, http.StatusOK, out)
}

// positionResponse is the JSON response for GET /api/positions. PnL is
// null until a quote for the instrument has been seen.
type positionResponse struct {
	ID             string            `json:"id"`
	Symbol         string            `json:"symbol"`
	Side           types.Side        `json:"side"`
	Qty            int               `json:"qty"`
	Entry          float64           `json:"entry"`
	StopPrice      float64           `json:"stop_price"`
	TargetPrice    float64           `json:"target_price"`
	Status         types.TradeStatus `json:"status"`
	NeedsAttention bool              `json:"needs_attention"`
	OpenedAt       time.Time         `json:"opened_at"`
	LastPrice      *float64          `json:"last_price"`
	UnrealizedPnL  *float64          `json:"unrealized_pnl"`
}

func (s *Server) getPositions(w http.ResponseWriter, r *http.Request) {
	records := s.reg.Snapshot()
	out := make([]positionResponse, 0, len(records))
	for _, rec := range records {
		p := positionResponse{
			ID:             rec.ID,
			Symbol:         rec.Instrument.Symbol,
			Side:           rec.Side,
			Qty:            rec.Qty,
			Entry:          rec.Entry,
			StopPrice:      rec.StopPrice,
			TargetPrice:    rec.TargetPrice,
			Status:         rec.Status,
			NeedsAttention: rec.NeedsAttention,
			OpenedAt:       rec.OpenedAt,
		}
		if last, ok := s.cache.Get(rec.Instrument.Token); ok {
			pnl := rec.UnrealizedPnL(last)
			p.LastPrice = &last
			p.UnrealizedPnL = &pnl
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
