package currency

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func usdt() Currency {
	return New("USDT",
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("1000000"),
		decimal.RequireFromString("0.01"))
}

func TestCountDecimals(t *testing.T) {
	cases := []struct {
		step string
		want int32
	}{
		{"0.01", 2},
		{"0.001", 3},
		{"0.00000001", 8},
		{"1", 0},
		{"10", 0},
	}
	for _, tc := range cases {
		got := CountDecimals(decimal.RequireFromString(tc.step))
		if got != tc.want {
			t.Fatalf("CountDecimals(%s) = %d, want %d", tc.step, got, tc.want)
		}
	}
}

func TestNormalizeTruncatesNotRounds(t *testing.T) {
	got := usdt().Normalize(decimal.RequireFromString("1.129"))
	if got.String() != "1.12" {
		t.Fatalf("Normalize(1.129) = %s, want 1.12", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	c := usdt()
	once := c.Normalize(decimal.RequireFromString("42.9999"))
	twice := c.Normalize(once)
	if !once.Equal(twice) {
		t.Fatalf("normalize not idempotent: %s != %s", once, twice)
	}
}

func TestNormalizeIntegerPassesThrough(t *testing.T) {
	c := usdt()
	got := c.Normalize(decimal.NewFromInt(7))
	if !got.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("Normalize(7) = %s, want 7", got)
	}
}

func TestParseAmountRejectsNonNumeric(t *testing.T) {
	_, err := usdt().ParseAmount("not-a-number")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("ParseAmount error = %v, want %v", err, ErrInvalidAmount)
	}
}

func TestParseAmountNormalizes(t *testing.T) {
	got, err := usdt().ParseAmount(" 3.456 ")
	if err != nil {
		t.Fatalf("ParseAmount() error = %v", err)
	}
	if got.String() != "3.45" {
		t.Fatalf("ParseAmount(3.456) = %s, want 3.45", got)
	}
}
