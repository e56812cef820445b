package eod

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"bracket-trader/internal/engine"
	"bracket-trader/internal/tradelog"
	"bracket-trader/internal/types"
)

func writeEvents(t *testing.T, events []engine.Event) {
	t.Helper()
	for _, ev := range events {
		if err := tradelog.Append(ev); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestSummarizeDayNoJournal(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	path, err := SummarizeDay(istNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected no csv without a journal, got %q", path)
	}
}

func TestSummarizeDayAggregates(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	now := istNow()

	writeEvents(t, []engine.Event{
		{Time: now, Type: engine.EventEntryFilled, TradeID: "t1", Symbol: "RELIANCE", Side: types.SideLong, Qty: 10, Price: 100},
		{Time: now, Type: engine.EventTargetHit, TradeID: "t1", Symbol: "RELIANCE", Side: types.SideLong, Qty: 10, Price: 110},
		{Time: now, Type: engine.EventEntryFilled, TradeID: "t2", Symbol: "RELIANCE", Side: types.SideLong, Qty: 5, Price: 100},
		{Time: now, Type: engine.EventStopHit, TradeID: "t2", Symbol: "RELIANCE", Side: types.SideLong, Qty: 5, Price: 95},
		{Time: now, Type: engine.EventEntryFilled, TradeID: "t3", Symbol: "INFY", Side: types.SideShort, Qty: 4, Price: 1500},
		{Time: now, Type: engine.EventTargetHit, TradeID: "t3", Symbol: "INFY", Side: types.SideShort, Qty: 4, Price: 1480},
		{Time: now, Type: engine.EventTradeFailed, TradeID: "t4", Symbol: "INFY", Side: types.SideLong, Qty: 1},
	})

	path, err := SummarizeDay(now)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if path == "" {
		t.Fatal("expected a csv path")
	}

	rows := readCSV(t, path)
	// header + INFY + RELIANCE + TOTAL
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4: %v", len(rows), rows)
	}
	infy, rel, total := rows[1], rows[2], rows[3]
	if infy[0] != "INFY" || infy[1] != "1" || infy[2] != "1" || infy[4] != "1" || infy[5] != "80.00" {
		t.Errorf("unexpected INFY row: %v", infy)
	}
	if rel[0] != "RELIANCE" || rel[1] != "2" || rel[2] != "1" || rel[3] != "1" || rel[5] != "75.00" {
		t.Errorf("unexpected RELIANCE row: %v", rel)
	}
	if total[0] != "TOTAL" || total[1] != "3" || total[5] != "155.00" {
		t.Errorf("unexpected TOTAL row: %v", total)
	}
}

func TestSummarizeDaySkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)
	now := istNow()

	writeEvents(t, []engine.Event{
		{Time: now, Type: engine.EventEntryFilled, TradeID: "t1", Symbol: "TCS", Side: types.SideLong, Qty: 2, Price: 4000},
		{Time: now, Type: engine.EventTargetHit, TradeID: "t1", Symbol: "TCS", Side: types.SideLong, Qty: 2, Price: 4010},
	})
	f, err := os.OpenFile(dailyEventFile(now), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	if _, err := f.WriteString("not json\n"); err != nil {
		t.Fatalf("append garbage: %v", err)
	}
	f.Close()

	path, err := SummarizeDay(now)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %v", len(rows), rows)
	}
	if rows[1][0] != "TCS" || rows[1][5] != "20.00" {
		t.Errorf("unexpected TCS row: %v", rows[1])
	}
}

func TestShouldRunNowIdempotent(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	now := istNow()
	if now.Before(marketCloseTime(now)) {
		t.Skip("market still open in IST")
	}
	run, path := ShouldRunNow()
	if !run {
		t.Fatal("expected first check to run")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if again, _ := ShouldRunNow(); again {
		t.Error("expected second check to skip once csv exists")
	}
}
