package bot

import (
	"fmt"

	"github.com/shopspring/decimal"

	"grid-hands/internal/config"
	"grid-hands/internal/hands"
)

type action int

const (
	actNone action = iota
	actBuy
	actSell
)

// policy decides what a hand should do at a price. Implementations may
// mutate the hand's trailing state; balance changes belong to the engine.
type policy interface {
	decide(b *Bot, h *hands.Hand, price decimal.Decimal, sweep bool) action
}

func newPolicy(name config.Policy, trailStepPercent decimal.Decimal) (policy, error) {
	switch name {
	case config.PolicyStandard, "":
		return standardPolicy{}, nil
	case config.PolicyTrailing:
		if trailStepPercent.Sign() <= 0 {
			return nil, fmt.Errorf("trailing policy needs a positive trail step")
		}
		return &trailingPolicy{step: trailStepPercent.Div(decimal.NewFromInt(100))}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// standardPolicy trades the moment the price crosses a band edge: buy when
// the price is under the hand's lower bound, sell when it is over the upper
// bound.
type standardPolicy struct{}

func (standardPolicy) decide(b *Bot, h *hands.Hand, price decimal.Decimal, _ bool) action {
	if price.Cmp(h.BuyBelow) < 0 && b.canBuy(h) {
		return actBuy
	}
	if price.Cmp(h.SellAbove) > 0 && b.canSell(h, price) {
		return actSell
	}
	return actNone
}

// trailingPolicy arms a hand when the price crosses a band edge, then rides
// the move with a stop that ratchets toward the price. The trade fires when
// the price reverses back through the stop, capturing part of the overshoot
// a standard policy leaves on the table.
type trailingPolicy struct {
	// step is the stop distance as a fraction of price.
	step decimal.Decimal
}

var two = decimal.NewFromInt(2)

func (p *trailingPolicy) decide(b *Bot, h *hands.Hand, price decimal.Decimal, sweep bool) action {
	// The first evaluated tick clears the buy backlog: hands already deep
	// in buy territory fill immediately instead of all arming at once.
	// Sells are never swept; a hand above its target arms a trailing sell
	// below and rides the move like any other.
	if sweep && price.Cmp(h.BuyBelow) < 0 && b.canBuy(h) {
		return actBuy
	}

	if h.ReadyToBuy {
		gap := h.StopBuy.Sub(price)
		if gap.Cmp(h.StopBuy.Mul(p.step)) > 0 {
			h.StopBuy = h.StopBuy.Sub(gap.Div(two))
			h.StopBuyResets++
		}
		if price.Cmp(h.StopBuy) >= 0 && price.Cmp(h.SellAbove) < 0 {
			if b.canBuy(h) {
				return actBuy
			}
			h.ReadyToBuy = false
			h.StopBuy = decimal.Zero
		}
		return actNone
	}
	if h.ReadyToSell {
		gap := price.Sub(h.StopSell)
		if gap.Cmp(h.StopSell.Mul(p.step)) > 0 {
			h.StopSell = h.StopSell.Add(gap.Div(two))
			h.StopSellResets++
		}
		if price.Cmp(h.StopSell) <= 0 && price.Cmp(h.BuyBelow) > 0 {
			if b.canSell(h, price) {
				return actSell
			}
			h.ReadyToSell = false
			h.StopSell = decimal.Zero
		}
		return actNone
	}

	one := decimal.NewFromInt(1)
	if price.Cmp(h.BuyBelow) < 0 && b.canBuy(h) {
		h.ReadyToBuy = true
		h.StopBuy = price.Mul(one.Add(p.step))
		return actNone
	}
	if price.Cmp(h.SellAbove) > 0 && b.canSell(h, price) {
		h.ReadyToSell = true
		h.StopSell = price.Mul(one.Sub(p.step))
		return actNone
	}
	return actNone
}
