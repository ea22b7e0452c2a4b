// Package bot runs one grid strategy instance: it consumes price ticks,
// selects the hands whose bands the price has crossed, executes their
// trades, and keeps the ledger's balances exact.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"grid-hands/internal/config"
	"grid-hands/internal/currency"
	"grid-hands/internal/feed"
	"grid-hands/internal/hands"
	"grid-hands/internal/trader"
)

// TradeRecord is the immutable log entry of one completed fill, written
// after both sides of the hand's balance have been updated.
type TradeRecord struct {
	HandID    int             `json:"hand_id"`
	Side      trader.Side     `json:"side"`
	Spent     decimal.Decimal `json:"spent"`
	Received  decimal.Decimal `json:"received"`
	Price     decimal.Decimal `json:"price"`
	BuyBelow  decimal.Decimal `json:"buy_below"`
	SellAbove decimal.Decimal `json:"sell_above"`
	BuyCount  int             `json:"buy_count"`
	SellCount int             `json:"sell_count"`
	At        time.Time       `json:"at"`
}

// Snapshot captures the full ledger state at a point in time.
type Snapshot struct {
	BotID     string          `json:"bot_id"`
	Symbol    string          `json:"symbol"`
	Hands     []hands.Hand    `json:"hands"`
	LastPrice decimal.Decimal `json:"last_price"`
	At        time.Time       `json:"at"`
}

// Recorder persists trade records and snapshots. Persistence failures are
// reported to the caller's log but never stop trading.
type Recorder interface {
	SaveTrade(rec TradeRecord) error
	SaveSnapshot(snap Snapshot) error
}

type Params struct {
	BotID  string
	Symbol string
	Ledger *hands.Ledger
	Exec   trader.Executor

	Base     currency.Currency
	Quote    currency.Currency
	MinFunds decimal.Decimal
	Fee      decimal.Decimal

	Policy           config.Policy
	TrailStepPercent decimal.Decimal

	TriggerBelowPrice decimal.Decimal
	PriceCeiling      decimal.Decimal
	MinInterval       time.Duration

	StartQuote decimal.Decimal
	StartBase  decimal.Decimal

	// Live dispatches candidate trades concurrently and enforces the
	// evaluation rate limit. Replay runs strictly sequentially.
	Live     bool
	Recorder Recorder
	Log      *zap.SugaredLogger
}

type Bot struct {
	mu sync.Mutex

	botID  string
	symbol string
	ledger *hands.Ledger
	exec   trader.Executor

	base     currency.Currency
	quote    currency.Currency
	minFunds decimal.Decimal
	fee      decimal.Decimal

	policy policy

	triggerBelow decimal.Decimal
	ceiling      decimal.Decimal
	minInterval  time.Duration

	live     bool
	recorder Recorder
	log      *zap.SugaredLogger

	startQuote decimal.Decimal
	startBase  decimal.Decimal
	startValue decimal.Decimal

	triggered bool
	firstTick bool
	swept     bool
	lastEval  time.Time
	lastPrice decimal.Decimal
	lowest    decimal.Decimal
	highest   decimal.Decimal

	records []TradeRecord
}

func New(p Params) (*Bot, error) {
	if p.Ledger == nil || len(p.Ledger.Hands) == 0 {
		return nil, fmt.Errorf("bot needs a built ledger")
	}
	if p.Exec == nil {
		return nil, fmt.Errorf("bot needs an executor")
	}
	if p.Log == nil {
		p.Log = zap.NewNop().Sugar()
	}
	pol, err := newPolicy(p.Policy, p.TrailStepPercent)
	if err != nil {
		return nil, err
	}
	return &Bot{
		botID:        p.BotID,
		symbol:       p.Symbol,
		ledger:       p.Ledger,
		exec:         p.Exec,
		base:         p.Base,
		quote:        p.Quote,
		minFunds:     p.MinFunds,
		fee:          p.Fee,
		policy:       pol,
		triggerBelow: p.TriggerBelowPrice,
		ceiling:      p.PriceCeiling,
		minInterval:  p.MinInterval,
		live:         p.Live,
		recorder:     p.Recorder,
		log:          p.Log,
		startQuote:   p.StartQuote,
		startBase:    p.StartBase,
		triggered:    p.TriggerBelowPrice.Sign() <= 0,
		firstTick:    true,
	}, nil
}

type candidate struct {
	idx    int
	side   trader.Side
	amount decimal.Decimal
}

// OnPrice advances the state machine by one tick. A tick that fails
// validation returns an error the caller may log and skip; execution and
// persistence failures are handled internally and never halt the run.
func (b *Bot) OnPrice(ctx context.Context, tick feed.Tick) error {
	if !feed.ValidPrice(tick.Price, b.ceiling) {
		return fmt.Errorf("%w: %s", feed.ErrPriceOutOfBounds, tick.Price)
	}
	price := tick.Price

	b.mu.Lock()
	if !b.triggered {
		if price.Cmp(b.triggerBelow) < 0 {
			b.triggered = true
			b.log.Infow("trigger price crossed, bot armed",
				"price", price.String(), "trigger_below", b.triggerBelow.String())
		}
		// A gated tick feeds the trigger check only; evaluation and
		// watermarks start on the tick after arming.
		b.mu.Unlock()
		return nil
	}

	if b.live && b.minInterval > 0 {
		now := time.Now()
		if now.Sub(b.lastEval) < b.minInterval {
			b.mu.Unlock()
			return nil
		}
		b.lastEval = now
	}

	b.lastPrice = price
	if b.firstTick {
		b.firstTick = false
		b.lowest = price
		b.highest = price
		b.startValue = b.startQuote.Add(b.startBase.Mul(price))
	} else {
		if price.Cmp(b.lowest) < 0 {
			b.lowest = price
		}
		if price.Cmp(b.highest) > 0 {
			b.highest = price
		}
	}

	// Pass one: decide against a fixed view of the ledger, so a fill applied
	// mid-tick cannot qualify further hands on the same tick.
	var cands []candidate
	sweep := !b.swept
	b.swept = true
	for i := range b.ledger.Hands {
		h := &b.ledger.Hands[i]
		if h.TradeIsPending {
			continue
		}
		switch b.policy.decide(b, h, price, sweep) {
		case actBuy:
			cands = append(cands, candidate{idx: i, side: trader.Buy, amount: h.Quote})
			h.TradeIsPending = true
		case actSell:
			cands = append(cands, candidate{idx: i, side: trader.Sell, amount: h.Base})
			h.TradeIsPending = true
		}
	}
	b.mu.Unlock()

	if len(cands) == 0 {
		return nil
	}

	// Pass two: execute. Replay stays sequential in hand order so identical
	// inputs produce identical ledgers.
	if !b.live {
		for _, c := range cands {
			b.execute(ctx, c, tick)
		}
		return nil
	}
	var wg sync.WaitGroup
	for _, c := range cands {
		wg.Add(1)
		go func(c candidate) {
			defer wg.Done()
			b.execute(ctx, c, tick)
		}(c)
	}
	wg.Wait()
	return nil
}

func (b *Bot) execute(ctx context.Context, c candidate, tick feed.Tick) {
	fill, err := b.exec.Trade(ctx, c.side, c.amount, tick.Price)

	b.mu.Lock()
	defer b.mu.Unlock()
	h := &b.ledger.Hands[c.idx]
	h.TradeIsPending = false
	if err != nil {
		b.log.Warnw("trade did not complete, hand released",
			"hand", h.ID, "side", c.side, "amount", c.amount.String(), "err", err)
		return
	}

	// Both sides move together; a hand is never left half-updated.
	switch c.side {
	case trader.Buy:
		h.Quote = h.Quote.Sub(fill.Spent)
		h.Base = h.Base.Add(fill.Received)
		h.BuyCount++
		h.ReadyToBuy = false
		h.StopBuy = decimal.Zero
	case trader.Sell:
		h.Base = h.Base.Sub(fill.Spent)
		h.Quote = h.Quote.Add(fill.Received)
		h.SellCount++
		h.ReadyToSell = false
		h.StopSell = decimal.Zero
	}

	rec := TradeRecord{
		HandID:    h.ID,
		Side:      c.side,
		Spent:     fill.Spent,
		Received:  fill.Received,
		Price:     tick.Price,
		BuyBelow:  h.BuyBelow,
		SellAbove: h.SellAbove,
		BuyCount:  h.BuyCount,
		SellCount: h.SellCount,
		At:        tick.At,
	}
	b.records = append(b.records, rec)
	b.log.Infow("trade filled",
		"hand", h.ID, "side", c.side, "price", tick.Price.String(),
		"spent", fill.Spent.String(), "received", fill.Received.String())

	if b.recorder != nil {
		if err := b.recorder.SaveTrade(rec); err != nil {
			b.log.Warnw("trade record not persisted", "hand", h.ID, "err", err)
		}
		// A live ledger must survive a restart; every applied fill is
		// followed by a fresh snapshot. Replay snapshots once, at the end.
		if b.live {
			if err := b.recorder.SaveSnapshot(b.snapshotLocked()); err != nil {
				b.log.Warnw("snapshot not persisted", "hand", h.ID, "err", err)
			}
		}
	}
}

func (b *Bot) canBuy(h *hands.Hand) bool {
	if h.Quote.Cmp(b.quote.MinSize) < 0 {
		return false
	}
	return h.Quote.Cmp(b.minFunds) >= 0
}

func (b *Bot) canSell(h *hands.Hand, price decimal.Decimal) bool {
	if h.Base.Cmp(b.base.MinSize) < 0 {
		return false
	}
	return h.Base.Mul(price).Cmp(b.minFunds) >= 0
}

// Snapshot returns a deep copy of the current ledger state.
func (b *Bot) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// snapshotLocked builds a Snapshot; callers hold b.mu.
func (b *Bot) snapshotLocked() Snapshot {
	return Snapshot{
		BotID:     b.botID,
		Symbol:    b.symbol,
		Hands:     b.ledger.Clone().Hands,
		LastPrice: b.lastPrice,
		At:        time.Now().UTC(),
	}
}

// Records returns a copy of the trade log in fill order.
func (b *Bot) Records() []TradeRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TradeRecord, len(b.records))
	copy(out, b.records)
	return out
}

// PriceRange reports the lowest and highest valid prices observed.
func (b *Bot) PriceRange() (lowest, highest decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lowest, b.highest
}

func (b *Bot) saveSnapshot() {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.SaveSnapshot(b.Snapshot()); err != nil {
		b.log.Warnw("snapshot not persisted", "err", err)
	}
}
