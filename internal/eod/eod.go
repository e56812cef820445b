// Package eod builds the end-of-day CSV summary out of the daily
// lifecycle journal: one row per symbol with closed-trade counts and
// realized P&L.
package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"bracket-trader/internal/engine"
	"bracket-trader/internal/types"
)

type aggRow struct {
	Symbol      string
	Closed      int
	Wins        int
	Losses      int
	Failed      int
	RealizedPnL float64
}

type eodSummarizer struct{}

// SummarizeDay aggregates the day's journal into logs/eod/<date>.csv.
// Returns "" with a nil error when no journal exists or it holds no
// completed trades.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	inPath := dailyEventFile(t)
	if _, err := os.Stat(inPath); err != nil {
		return "", nil
	}
	f, err := os.Open(inPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Entry price is recorded on ENTRY_FILLED, exit price on the
	// closing event; the pair is matched by trade ID.
	entries := map[string]engine.Event{}
	aggs := map[string]*aggRow{}

	row := func(symbol string) *aggRow {
		r := aggs[symbol]
		if r == nil {
			r = &aggRow{Symbol: symbol}
			aggs[symbol] = r
		}
		return r
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev engine.Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case engine.EventEntryFilled:
			entries[ev.TradeID] = ev
		case engine.EventTargetHit, engine.EventStopHit:
			r := row(ev.Symbol)
			r.Closed++
			if ev.Type == engine.EventTargetHit {
				r.Wins++
			} else {
				r.Losses++
			}
			if entry, ok := entries[ev.TradeID]; ok {
				pnl := (ev.Price - entry.Price) * float64(ev.Qty)
				if ev.Side == types.SideShort {
					pnl = -pnl
				}
				r.RealizedPnL += pnl
			}
		case engine.EventTradeFailed:
			row(ev.Symbol).Failed++
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := eodCSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()
	headers := []string{"symbol", "closed", "wins", "losses", "failed", "realized_pnl"}
	if err := w.Write(headers); err != nil {
		return "", err
	}
	var totalPnL float64
	var totalClosed int
	for _, k := range keys {
		r := aggs[k]
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.Closed),
			strconv.Itoa(r.Wins),
			strconv.Itoa(r.Losses),
			strconv.Itoa(r.Failed),
			fmt.Sprintf("%.2f", r.RealizedPnL),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		totalPnL += r.RealizedPnL
		totalClosed += r.Closed
	}
	total := []string{"TOTAL", strconv.Itoa(totalClosed), "", "", "", fmt.Sprintf("%.2f", totalPnL)}
	if err := w.Write(total); err != nil {
		return "", err
	}
	return outPath, nil
}

func (s *eodSummarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(istNow())
}

// ShouldRunNow reports whether the market has closed and today's
// summary has not been written yet.
func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	now := istNow()
	if now.Before(marketCloseTime(now)) {
		return false, ""
	}
	p := eodCSVPath(now)
	if _, err := os.Stat(p); err == nil {
		return false, p
	}
	return true, p
}
