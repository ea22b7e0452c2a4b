package exchange

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"grid-hands/internal/currency"
)

// Binance resolves symbol metadata from the exchange-info endpoint.
type Binance struct {
	client *binance.Client
}

func NewBinance(client *binance.Client) *Binance {
	return &Binance{client: client}
}

func (b *Binance) SymbolMeta(ctx context.Context, symbol string) (SymbolMeta, error) {
	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return SymbolMeta{}, fmt.Errorf("exchange info: %w", err)
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		return metaFromSymbol(s)
	}
	return SymbolMeta{}, ErrSymbolNotFound
}

func metaFromSymbol(s binance.Symbol) (SymbolMeta, error) {
	lot := s.LotSizeFilter()
	if lot == nil {
		return SymbolMeta{}, fmt.Errorf("symbol %s has no lot size filter", s.Symbol)
	}
	minQty, err := decimal.NewFromString(lot.MinQuantity)
	if err != nil {
		return SymbolMeta{}, fmt.Errorf("lot min quantity: %w", err)
	}
	maxQty, err := decimal.NewFromString(lot.MaxQuantity)
	if err != nil {
		return SymbolMeta{}, fmt.Errorf("lot max quantity: %w", err)
	}
	step, err := decimal.NewFromString(lot.StepSize)
	if err != nil {
		return SymbolMeta{}, fmt.Errorf("lot step size: %w", err)
	}

	// Quote amounts round to the symbol's quote precision.
	quoteStep := decimal.New(1, -int32(s.QuotePrecision))

	minFunds := decimal.Zero
	if f := s.NotionalFilter(); f != nil {
		minFunds, err = decimal.NewFromString(f.MinNotional)
		if err != nil {
			return SymbolMeta{}, fmt.Errorf("notional filter: %w", err)
		}
	} else if f := s.MinNotionalFilter(); f != nil {
		minFunds, err = decimal.NewFromString(f.MinNotional)
		if err != nil {
			return SymbolMeta{}, fmt.Errorf("min notional filter: %w", err)
		}
	}

	return SymbolMeta{
		Symbol:   s.Symbol,
		Base:     currency.New(s.BaseAsset, minQty, maxQty, step),
		Quote:    currency.New(s.QuoteAsset, quoteStep, decimal.Zero, quoteStep),
		MinFunds: minFunds,
	}, nil
}

var _ MetaProvider = (*Binance)(nil)
