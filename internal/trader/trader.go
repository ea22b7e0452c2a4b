package trader

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"grid-hands/internal/currency"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

var (
	ErrInvalidAmount = errors.New("trade amount must be > 0")
	ErrInvalidPrice  = errors.New("trade price must be > 0")
	// ErrNoFill signals a dispatched order that did not complete: rejected,
	// or not confirmed within the poll timeout. The caller releases the hand
	// and retries naturally on the next qualifying tick.
	ErrNoFill = errors.New("order did not fill")
)

// Fill is the two-sided result of one completed trade. Spent is denominated
// in the currency given up, Received in the currency obtained, already net
// of the trade fee and truncated to the receiving precision.
type Fill struct {
	Spent    decimal.Decimal
	Received decimal.Decimal
}

// Executor converts an intent to spend quote (buy) or base (sell) into a
// fill. Price is the last observed price: the simulated executor fills
// against it, the live executor ignores it and crosses the market.
type Executor interface {
	Trade(ctx context.Context, side Side, amount, price decimal.Decimal) (*Fill, error)
}

// Simulator computes fills in closed form. Buying converts amount of quote
// into amount/price of base; selling converts amount of base into
// amount*price of quote. The fee is deducted from the received side so
// simulated and live runs stay comparable.
type Simulator struct {
	Fee   decimal.Decimal
	Base  currency.Currency
	Quote currency.Currency
}

var one = decimal.NewFromInt(1)

func (s *Simulator) Fill(side Side, amount, price decimal.Decimal) (*Fill, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	keep := one.Sub(s.Fee)
	switch side {
	case Buy:
		received := s.Base.Normalize(amount.Div(price).Mul(keep))
		return &Fill{Spent: amount, Received: received}, nil
	case Sell:
		received := s.Quote.Normalize(amount.Mul(price).Mul(keep))
		return &Fill{Spent: amount, Received: received}, nil
	default:
		return nil, fmt.Errorf("unknown trade side %q", side)
	}
}

// SimExecutor adapts a Simulator to the Executor contract. It returns
// synchronously, which is what makes deterministic replay possible.
type SimExecutor struct {
	Sim *Simulator
}

func (e *SimExecutor) Trade(_ context.Context, side Side, amount, price decimal.Decimal) (*Fill, error) {
	return e.Sim.Fill(side, amount, price)
}

var _ Executor = (*SimExecutor)(nil)
