// Package exchange resolves symbol trading metadata: the base and quote
// currencies with their size limits, and the venue's minimum order value.
package exchange

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"grid-hands/internal/currency"
)

var ErrSymbolNotFound = errors.New("symbol not listed on exchange")

type SymbolMeta struct {
	Symbol   string
	Base     currency.Currency
	Quote    currency.Currency
	MinFunds decimal.Decimal
}

type MetaProvider interface {
	SymbolMeta(ctx context.Context, symbol string) (SymbolMeta, error)
}

// Static serves metadata fixed at construction time. Replays use it so a
// run never depends on network state.
type Static struct {
	meta SymbolMeta
}

func NewStatic(meta SymbolMeta) *Static {
	return &Static{meta: meta}
}

func (s *Static) SymbolMeta(_ context.Context, symbol string) (SymbolMeta, error) {
	if symbol != s.meta.Symbol {
		return SymbolMeta{}, ErrSymbolNotFound
	}
	return s.meta, nil
}

var _ MetaProvider = (*Static)(nil)
