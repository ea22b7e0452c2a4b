package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"grid-hands/internal/bot"
	"grid-hands/internal/hands"
	"grid-hands/internal/trader"
)

func openTestStore(t *testing.T, botID string) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), botID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndListTradesInWriteOrder(t *testing.T) {
	s := openTestStore(t, "bot1")
	for i := 0; i < 3; i++ {
		rec := bot.TradeRecord{
			HandID:   i,
			Side:     trader.Buy,
			Spent:    decimal.NewFromInt(int64(100 + i)),
			Received: decimal.RequireFromString("0.005"),
			Price:    decimal.NewFromInt(20000),
			At:       time.Unix(int64(i), 0).UTC(),
		}
		if err := s.SaveTrade(rec); err != nil {
			t.Fatalf("SaveTrade() error = %v", err)
		}
	}

	trades, err := s.Trades()
	if err != nil {
		t.Fatalf("Trades() error = %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("Trades() len = %d, want 3", len(trades))
	}
	for i, rec := range trades {
		if rec.HandID != i {
			t.Fatalf("trades[%d].HandID = %d, want %d", i, rec.HandID, i)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t, "bot1")

	missing, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if missing != nil {
		t.Fatalf("LoadSnapshot() = %+v, want nil before first save", missing)
	}

	snap := bot.Snapshot{
		BotID:  "bot1",
		Symbol: "BTCUSDT",
		Hands: []hands.Hand{
			{ID: 0, BuyBelow: decimal.NewFromInt(20000), SellAbove: decimal.NewFromInt(21000), Quote: decimal.NewFromInt(9)},
		},
		LastPrice: decimal.NewFromInt(20500),
		At:        time.Unix(100, 0).UTC(),
	}
	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadSnapshot() = nil after save")
	}
	if loaded.BotID != "bot1" || loaded.Symbol != "BTCUSDT" {
		t.Fatalf("snapshot identity = %s/%s", loaded.BotID, loaded.Symbol)
	}
	if len(loaded.Hands) != 1 || !loaded.Hands[0].Quote.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("snapshot hands = %+v", loaded.Hands)
	}
	if !loaded.LastPrice.Equal(decimal.NewFromInt(20500)) {
		t.Fatalf("snapshot last price = %s", loaded.LastPrice)
	}
}

func TestTradesAreScopedToBot(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "bot1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.SaveTrade(bot.TradeRecord{HandID: 7, Side: trader.Sell}); err != nil {
		t.Fatalf("SaveTrade() error = %v", err)
	}

	other := &Store{db: s.db, botID: "bot2"}
	trades, err := other.Trades()
	if err != nil {
		t.Fatalf("Trades() error = %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("bot2 sees %d foreign trades", len(trades))
	}
}
