// Package sweep replays one data set across a grid of strategy variants
// and ranks the outcomes, so a span or policy choice is backed by numbers
// instead of a hunch.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"grid-hands/internal/bot"
	"grid-hands/internal/config"
	"grid-hands/internal/exchange"
	"grid-hands/internal/feed"
	"grid-hands/internal/hands"
	"grid-hands/internal/trader"
)

type Variant struct {
	HandSpanPercent decimal.Decimal
	Policy          config.Policy
}

type Outcome struct {
	Variant
	Hands   int
	Results *bot.Results
}

type Params struct {
	Cfg      config.Config
	Spans    []decimal.Decimal
	Policies []config.Policy
	Log      *zap.SugaredLogger
}

// Run replays every span x policy combination against the configured data
// set. Variants whose geometry fails construction are skipped with a
// diagnostic; they are invalid configurations, not failed runs. Outcomes
// come back sorted best-first by liquidation-at-target profit.
func Run(ctx context.Context, p Params) ([]Outcome, error) {
	if p.Cfg.Mode != config.ModeReplay {
		return nil, fmt.Errorf("sweep requires replay mode")
	}
	if len(p.Spans) == 0 {
		p.Spans = []decimal.Decimal{p.Cfg.Strategy.HandSpanPercent.Decimal}
	}
	if len(p.Policies) == 0 {
		p.Policies = []config.Policy{p.Cfg.Strategy.Policy}
	}
	if p.Log == nil {
		p.Log = zap.NewNop().Sugar()
	}

	meta := exchange.FromReplay(p.Cfg.Symbol, p.Cfg.Replay)
	var outcomes []Outcome
	for _, span := range p.Spans {
		for _, policy := range p.Policies {
			variant := Variant{HandSpanPercent: span, Policy: policy}
			outcome, err := runVariant(ctx, p.Cfg, meta, variant, p.Log)
			if err != nil {
				if errors.Is(err, hands.ErrSpanBelowFee) || errors.Is(err, hands.ErrTooFewHands) {
					p.Log.Warnw("variant skipped, invalid geometry",
						"span", span.String(), "policy", policy, "err", err)
					continue
				}
				return nil, err
			}
			outcomes = append(outcomes, outcome)
		}
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Results.ProfitPct.Cmp(outcomes[j].Results.ProfitPct) > 0
	})
	return outcomes, nil
}

func runVariant(ctx context.Context, cfg config.Config, meta exchange.SymbolMeta, v Variant, log *zap.SugaredLogger) (Outcome, error) {
	cfg.Strategy.HandSpanPercent = config.Decimal{Decimal: v.HandSpanPercent}
	cfg.Strategy.Policy = v.Policy

	exec := &trader.SimExecutor{Sim: &trader.Simulator{
		Fee:   cfg.Strategy.Fee.Decimal,
		Base:  meta.Base,
		Quote: meta.Quote,
	}}
	b, err := bot.FromConfig(cfg, meta, exec, nil, log)
	if err != nil {
		return Outcome{}, err
	}

	src, err := feed.NewHistory(cfg.Replay.DataPaths, feed.HistoryOptions{
		Symbol:      cfg.Symbol,
		PriceColumn: cfg.Replay.PriceColumn,
		TimeColumn:  cfg.Replay.TimeColumnIndex(),
		Ceiling:     cfg.Strategy.PriceCeiling.Decimal,
	}, log)
	if err != nil {
		return Outcome{}, fmt.Errorf("open replay data: %w", err)
	}
	defer src.Close()

	results, err := bot.NewRunner(src, b, log).Run(ctx)
	if err != nil {
		return Outcome{}, err
	}
	snap := b.Snapshot()
	return Outcome{Variant: v, Hands: len(snap.Hands), Results: results}, nil
}

// ParseSpans converts span strings from a flag into decimals.
func ParseSpans(raw []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(raw))
	for _, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid span %q: %w", s, err)
		}
		out = append(out, d)
	}
	return out, nil
}
