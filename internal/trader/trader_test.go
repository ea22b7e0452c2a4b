package trader

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"grid-hands/internal/currency"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSimulator() *Simulator {
	return &Simulator{
		Fee:   dec("0.001"),
		Base:  currency.New("BTC", dec("0.0001"), dec("10000"), dec("0.00000001")),
		Quote: currency.New("USDT", dec("0.01"), dec("1000000"), dec("0.01")),
	}
}

func TestSimulateBuy(t *testing.T) {
	sim := testSimulator()
	fill, err := sim.Fill(Buy, dec("100"), dec("20000"))
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if !fill.Spent.Equal(dec("100")) {
		t.Fatalf("spent = %s, want 100", fill.Spent)
	}
	// 100/20000 = 0.005 base, minus 0.1% fee = 0.004995.
	if !fill.Received.Equal(dec("0.004995")) {
		t.Fatalf("received = %s, want 0.004995", fill.Received)
	}
}

func TestSimulateSell(t *testing.T) {
	sim := testSimulator()
	fill, err := sim.Fill(Sell, dec("0.005"), dec("21000"))
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if !fill.Spent.Equal(dec("0.005")) {
		t.Fatalf("spent = %s, want 0.005", fill.Spent)
	}
	// 0.005*21000 = 105, minus fee = 104.895.
	if !fill.Received.Equal(dec("104.89")) {
		t.Fatalf("received = %s, want 104.89 (truncated to quote precision)", fill.Received)
	}
}

func TestSimulateTruncatesReceivedSide(t *testing.T) {
	sim := testSimulator()
	fill, err := sim.Fill(Sell, dec("0.0001"), dec("33333"))
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if fill.Received.Exponent() < -2 {
		t.Fatalf("received %s not truncated to 2 decimals", fill.Received)
	}
}

func TestSimulateFeeIsMonotonicLoss(t *testing.T) {
	sim := testSimulator()
	price := dec("25000")
	fill, err := sim.Fill(Buy, dec("50"), price)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	// Value received, marked at the trade price, never exceeds value spent.
	if fill.Received.Mul(price).Cmp(fill.Spent) > 0 {
		t.Fatalf("fill gained value: spent %s, received %s at %s",
			fill.Spent, fill.Received, price)
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	sim := testSimulator()
	if _, err := sim.Fill(Buy, dec("0"), dec("100")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount error = %v, want %v", err, ErrInvalidAmount)
	}
	if _, err := sim.Fill(Sell, dec("1"), dec("-5")); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("negative price error = %v, want %v", err, ErrInvalidPrice)
	}
}
