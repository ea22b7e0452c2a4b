package feed

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one price event. Replay ticks carry the source row time when the
// file has one; live ticks carry the receive time.
type Tick struct {
	Symbol string
	Price  decimal.Decimal
	At     time.Time
}

// Feed supplies an ordered sequence of price events. A replay feed returns
// io.EOF once every row of every supplied file has been delivered; a live
// feed never completes on its own.
type Feed interface {
	Next() (Tick, error)
	Close() error
}

var ErrPriceOutOfBounds = errors.New("price outside validity bounds")

// DefaultPriceCeiling is far above any realistic market price; anything at
// or beyond it is treated as a corrupt value at the source boundary.
var DefaultPriceCeiling = decimal.NewFromInt(1_000_000_000)

// ValidPrice applies the source-boundary validity check: strictly positive
// and strictly below the ceiling.
func ValidPrice(price, ceiling decimal.Decimal) bool {
	if ceiling.Sign() <= 0 {
		ceiling = DefaultPriceCeiling
	}
	return price.Sign() > 0 && price.Cmp(ceiling) < 0
}
