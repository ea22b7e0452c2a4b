package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid decimal amount")

// Currency carries the tradable precision rules of one asset, as published
// by the exchange. It is immutable once constructed.
type Currency struct {
	Symbol    string
	MinSize   decimal.Decimal
	MaxSize   decimal.Decimal
	Increment decimal.Decimal
	Decimals  int32
}

func New(symbol string, minSize, maxSize, increment decimal.Decimal) Currency {
	return Currency{
		Symbol:    symbol,
		MinSize:   minSize,
		MaxSize:   maxSize,
		Increment: increment,
		Decimals:  CountDecimals(increment),
	}
}

// CountDecimals returns the number of digits after the decimal point of a
// step value such as "0.001".
func CountDecimals(step decimal.Decimal) int32 {
	if exp := step.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// Normalize truncates an amount to the currency's tradable precision.
// Truncation rather than rounding: the result never spends more than the
// exchange allows at this granularity. Idempotent.
func (c Currency) Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(c.Decimals)
}

// ParseAmount parses a decimal string and normalizes it. Non-numeric input
// is an error, never a panic.
func (c Currency) ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return c.Normalize(d), nil
}
