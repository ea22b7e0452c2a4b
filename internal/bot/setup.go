package bot

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"grid-hands/internal/config"
	"grid-hands/internal/exchange"
	"grid-hands/internal/hands"
	"grid-hands/internal/trader"
)

// FromConfig builds the ledger from the strategy configuration, seeds the
// starting inventory, and assembles the bot around it. Geometry and funding
// errors here are fatal: a strategy that fails construction must not start.
func FromConfig(cfg config.Config, meta exchange.SymbolMeta, exec trader.Executor, rec Recorder, log *zap.SugaredLogger) (*Bot, error) {
	s := cfg.Strategy
	ledger, err := hands.Build(hands.BuildParams{
		From:            s.From.Decimal,
		To:              s.To.Decimal,
		HandSpanPercent: s.HandSpanPercent.Decimal,
		Fee:             s.Fee.Decimal,
	})
	if err != nil {
		return nil, fmt.Errorf("build ledger: %w", err)
	}

	if s.QuoteStartAmount.Sign() > 0 {
		perHand, err := ledger.TopUpQuote(s.QuoteStartAmount.Decimal, s.QuoteFrom.Decimal, s.QuoteTo.Decimal, meta.Quote)
		if err != nil {
			return nil, fmt.Errorf("seed quote: %w", err)
		}
		log.Infow("quote inventory seeded", "total", s.QuoteStartAmount.String(), "per_hand", perHand.String())
	}
	if s.BaseStartAmount.Sign() > 0 {
		perHand, err := ledger.TopUpBase(s.BaseStartAmount.Decimal, s.BaseFrom.Decimal, s.BaseTo.Decimal, meta.Base)
		if err != nil {
			return nil, fmt.Errorf("seed base: %w", err)
		}
		log.Infow("base inventory seeded", "total", s.BaseStartAmount.String(), "per_hand", perHand.String())
	}

	return New(Params{
		BotID:             cfg.BotID,
		Symbol:            cfg.Symbol,
		Ledger:            ledger,
		Exec:              exec,
		Base:              meta.Base,
		Quote:             meta.Quote,
		MinFunds:          meta.MinFunds,
		Fee:               s.Fee.Decimal,
		Policy:            s.Policy,
		TrailStepPercent:  s.TrailStepPercent.Decimal,
		TriggerBelowPrice: s.TriggerBelowPrice.Decimal,
		PriceCeiling:      s.PriceCeiling.Decimal,
		MinInterval:       time.Duration(s.MinIntervalSec) * time.Second,
		StartQuote:        s.QuoteStartAmount.Decimal,
		StartBase:         s.BaseStartAmount.Decimal,
		Live:              cfg.Mode == config.ModeLive,
		Recorder:          rec,
		Log:               log,
	})
}
