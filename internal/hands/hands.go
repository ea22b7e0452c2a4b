package hands

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"grid-hands/internal/currency"
)

var (
	ErrInvalidRange   = errors.New("invalid price range")
	ErrInvalidSpan    = errors.New("hand span percent must be > 0")
	ErrTooFewHands    = errors.New("range produces fewer than two hands")
	ErrSpanBelowFee   = errors.New("hand span does not cover the round-trip fee")
	ErrNegativeAmount = errors.New("top-up amount must be >= 0")
)

// Hand is one band of the grid. Quote and Base are the balances the hand
// owns; they are mutated only by the engine after a confirmed fill.
// TradeIsPending is true strictly between dispatching a trade and applying
// its result; while set, the hand is excluded from candidate selection.
type Hand struct {
	ID             int             `json:"id"`
	BuyBelow       decimal.Decimal `json:"buy_below"`
	SellAbove      decimal.Decimal `json:"sell_above"`
	Quote          decimal.Decimal `json:"quote"`
	Base           decimal.Decimal `json:"base"`
	BuyCount       int             `json:"buy_count"`
	SellCount      int             `json:"sell_count"`
	TradeIsPending bool            `json:"trade_is_pending"`

	// Trailing-stop state, used only by the trailing policy.
	ReadyToBuy     bool            `json:"ready_to_buy,omitempty"`
	ReadyToSell    bool            `json:"ready_to_sell,omitempty"`
	StopBuy        decimal.Decimal `json:"stop_buy,omitempty"`
	StopSell       decimal.Decimal `json:"stop_sell,omitempty"`
	StopBuyResets  int             `json:"stop_buy_resets,omitempty"`
	StopSellResets int             `json:"stop_sell_resets,omitempty"`
}

// Ledger owns the hands of one strategy instance. The grid geometry is
// fixed after Build; balances drift and counters grow, but hands are never
// created or destroyed for the lifetime of the run.
type Ledger struct {
	Hands []Hand
}

type BuildParams struct {
	From            decimal.Decimal
	To              decimal.Decimal
	HandSpanPercent decimal.Decimal
	Fee             decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// Build creates contiguous hands from From to To. Each hand's width is a
// percentage of its own lower bound, so hands higher in the range are wider
// in absolute terms and the price move needed to trigger a trade stays
// constant as a ratio across the grid.
func Build(p BuildParams) (*Ledger, error) {
	if p.From.Sign() <= 0 || p.To.Cmp(p.From) <= 0 {
		return nil, fmt.Errorf("%w: from=%s to=%s", ErrInvalidRange, p.From, p.To)
	}
	if p.HandSpanPercent.Sign() <= 0 {
		return nil, ErrInvalidSpan
	}
	spanFraction := p.HandSpanPercent.Div(oneHundred)
	if p.Fee.Sign() > 0 && p.Fee.Mul(decimal.NewFromInt(2)).Cmp(spanFraction) >= 0 {
		return nil, fmt.Errorf("%w: span=%s%% fee=%s", ErrSpanBelowFee, p.HandSpanPercent, p.Fee)
	}

	ledger := &Ledger{}
	lower := p.From
	for lower.Cmp(p.To) < 0 {
		width := lower.Mul(spanFraction)
		ledger.Hands = append(ledger.Hands, Hand{
			ID:        len(ledger.Hands),
			BuyBelow:  lower,
			SellAbove: lower.Add(width),
			Quote:     decimal.Zero,
			Base:      decimal.Zero,
		})
		lower = lower.Add(width)
	}
	if len(ledger.Hands) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewHands, len(ledger.Hands))
	}
	return ledger, nil
}

// TopUpQuote divides total evenly across the hands whose BuyBelow falls in
// [from, to] and assigns each the normalized share. An empty subset seeds no
// inventory and is not an error.
func (l *Ledger) TopUpQuote(total, from, to decimal.Decimal, cur currency.Currency) (decimal.Decimal, error) {
	return l.topUp(total, from, to, cur, func(h *Hand, amount decimal.Decimal) {
		h.Quote = amount
	})
}

// TopUpBase mirrors TopUpQuote for the base-side starting inventory.
func (l *Ledger) TopUpBase(total, from, to decimal.Decimal, cur currency.Currency) (decimal.Decimal, error) {
	return l.topUp(total, from, to, cur, func(h *Hand, amount decimal.Decimal) {
		h.Base = amount
	})
}

func (l *Ledger) topUp(total, from, to decimal.Decimal, cur currency.Currency, assign func(*Hand, decimal.Decimal)) (decimal.Decimal, error) {
	if total.Sign() < 0 {
		return decimal.Zero, ErrNegativeAmount
	}
	var members []int
	for i := range l.Hands {
		b := l.Hands[i].BuyBelow
		if b.Cmp(from) >= 0 && b.Cmp(to) <= 0 {
			members = append(members, i)
		}
	}
	if len(members) == 0 || total.Sign() == 0 {
		return decimal.Zero, nil
	}
	perHand := cur.Normalize(total.Div(decimal.NewFromInt(int64(len(members)))))
	for _, i := range members {
		assign(&l.Hands[i], perHand)
	}
	return perHand, nil
}

// Clone returns a deep value copy of the ledger. Projections run against a
// clone so the live ledger is never aliased.
func (l *Ledger) Clone() *Ledger {
	cp := make([]Hand, len(l.Hands))
	copy(cp, l.Hands)
	return &Ledger{Hands: cp}
}

// TotalQuote sums the quote balances of every hand.
func (l *Ledger) TotalQuote() decimal.Decimal {
	total := decimal.Zero
	for i := range l.Hands {
		total = total.Add(l.Hands[i].Quote)
	}
	return total
}

// TotalBase sums the base balances of every hand.
func (l *Ledger) TotalBase() decimal.Decimal {
	total := decimal.Zero
	for i := range l.Hands {
		total = total.Add(l.Hands[i].Base)
	}
	return total
}

// Counts returns the cumulative buy and sell fill counters.
func (l *Ledger) Counts() (buys, sells int) {
	for i := range l.Hands {
		buys += l.Hands[i].BuyCount
		sells += l.Hands[i].SellCount
	}
	return buys, sells
}
