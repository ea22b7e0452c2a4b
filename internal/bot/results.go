package bot

import (
	"github.com/shopspring/decimal"

	"grid-hands/internal/hands"
)

// Results summarizes a run two ways: marked to market at the last observed
// price, and projected as if every hand holding inventory sold at its own
// band target. Both projections run against a clone; computing results
// never changes the ledger.
type Results struct {
	BotID  string
	Symbol string

	Buys   int
	Sells  int
	Trades int

	QuoteBalance decimal.Decimal
	BaseBalance  decimal.Decimal
	LastPrice    decimal.Decimal
	LowestPrice  decimal.Decimal
	HighestPrice decimal.Decimal

	StartValue       decimal.Decimal
	MarkToMarket     decimal.Decimal
	LiquidationValue decimal.Decimal

	// Profit over the start value, in percent rounded to two decimals,
	// computed independently for each projection.
	MarkToMarketProfitPct decimal.Decimal
	ProfitPct             decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func (b *Bot) Results() *Results {
	b.mu.Lock()
	defer b.mu.Unlock()

	clone := b.ledger.Clone()
	buys, sells := clone.Counts()

	r := &Results{
		BotID:        b.botID,
		Symbol:       b.symbol,
		Buys:         buys,
		Sells:        sells,
		Trades:       len(b.records),
		QuoteBalance: clone.TotalQuote(),
		BaseBalance:  clone.TotalBase(),
		LastPrice:    b.lastPrice,
		LowestPrice:  b.lowest,
		HighestPrice: b.highest,
		StartValue:   b.startValue,
	}
	r.MarkToMarket = r.QuoteBalance.Add(r.BaseBalance.Mul(b.lastPrice))
	r.LiquidationValue = b.liquidationValue(clone)
	if b.startValue.Sign() > 0 {
		r.MarkToMarketProfitPct = profitPct(r.MarkToMarket, b.startValue)
		r.ProfitPct = profitPct(r.LiquidationValue, b.startValue)
	}
	return r
}

func profitPct(finalValue, startValue decimal.Decimal) decimal.Decimal {
	return finalValue.Sub(startValue).Div(startValue).Mul(hundred).Round(2)
}

// liquidationValue sells each hand's base inventory at that hand's own
// target price, fee deducted and truncated exactly as a real fill would be.
func (b *Bot) liquidationValue(clone *hands.Ledger) decimal.Decimal {
	keep := decimal.NewFromInt(1).Sub(b.fee)
	total := decimal.Zero
	for i := range clone.Hands {
		h := &clone.Hands[i]
		total = total.Add(h.Quote)
		if h.Base.Sign() > 0 {
			total = total.Add(b.quote.Normalize(h.Base.Mul(h.SellAbove).Mul(keep)))
		}
	}
	return total
}
