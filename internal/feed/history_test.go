package feed

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func drain(t *testing.T, f Feed) []Tick {
	t.Helper()
	var ticks []Tick
	for {
		tick, err := f.Next()
		if err == io.EOF {
			return ticks
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		ticks = append(ticks, tick)
	}
}

func TestHistorySkipsHeaderAndReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.csv",
		"open_time,open,high,low,close\n"+
			"1,100,101,99,100.5\n"+
			"2,100.5,102,100,101.5\n")
	f, err := NewHistory([]string{path}, HistoryOptions{Symbol: "BTCUSDT", PriceColumn: 4, TimeColumn: 0}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewHistory() error = %v", err)
	}
	defer f.Close()
	ticks := drain(t, f)
	if len(ticks) != 2 {
		t.Fatalf("ticks = %d, want 2", len(ticks))
	}
	if !ticks[0].Price.Equal(decimal.RequireFromString("100.5")) ||
		!ticks[1].Price.Equal(decimal.RequireFromString("101.5")) {
		t.Fatalf("unexpected prices: %s, %s", ticks[0].Price, ticks[1].Price)
	}
	if ticks[0].Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q", ticks[0].Symbol)
	}
}

func TestHistoryReadsFilesInSortedOrder(t *testing.T) {
	dir := t.TempDir()
	// Written out of order on purpose.
	b := writeFile(t, dir, "b.csv", "2\n")
	a := writeFile(t, dir, "a.csv", "1\n")
	f, err := NewHistory([]string{b, a}, HistoryOptions{PriceColumn: 0, TimeColumn: -1}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewHistory() error = %v", err)
	}
	defer f.Close()
	ticks := drain(t, f)
	if len(ticks) != 2 {
		t.Fatalf("ticks = %d, want 2", len(ticks))
	}
	if !ticks[0].Price.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("first tick from wrong file: %s", ticks[0].Price)
	}
}

func TestHistoryRejectsOutOfBoundsPrices(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.csv", "0\n-5\n2000000000\n42\n")
	f, err := NewHistory([]string{path}, HistoryOptions{PriceColumn: 0, TimeColumn: -1}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewHistory() error = %v", err)
	}
	defer f.Close()
	ticks := drain(t, f)
	if len(ticks) != 1 || !ticks[0].Price.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("expected only the in-bounds tick, got %v", ticks)
	}
}

func TestValidPrice(t *testing.T) {
	if ValidPrice(decimal.Zero, decimal.Zero) {
		t.Fatal("zero price accepted")
	}
	if ValidPrice(DefaultPriceCeiling, decimal.Zero) {
		t.Fatal("ceiling price accepted")
	}
	if !ValidPrice(decimal.NewFromInt(30000), decimal.Zero) {
		t.Fatal("normal price rejected")
	}
}
