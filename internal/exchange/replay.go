package exchange

import (
	"grid-hands/internal/config"
	"grid-hands/internal/currency"
)

// FromReplay builds symbol metadata from the replay configuration, so a
// simulated run uses the same precision rules a live run would fetch from
// the venue.
func FromReplay(symbol string, rc config.ReplayConfig) SymbolMeta {
	return SymbolMeta{
		Symbol:   symbol,
		Base:     currency.New(symbol, rc.BaseMinSize.Decimal, rc.BaseMaxSize.Decimal, rc.BaseIncrement.Decimal),
		Quote:    currency.New(symbol, rc.QuoteMinSize.Decimal, rc.QuoteMaxSize.Decimal, rc.QuoteIncrement.Decimal),
		MinFunds: rc.MinFunds.Decimal,
	}
}
