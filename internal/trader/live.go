package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"grid-hands/internal/currency"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultFillTimeout  = 15 * time.Second
)

// Live places market orders against the exchange and polls for the fill by
// order ID. A fill that cannot be confirmed within the timeout is reported
// as ErrNoFill; the order itself may still complete later, which the next
// reconcile pass picks up.
type Live struct {
	client       *binance.Client
	symbol       string
	fee          decimal.Decimal
	base         currency.Currency
	quote        currency.Currency
	pollInterval time.Duration
	fillTimeout  time.Duration
	log          *zap.SugaredLogger
}

func NewLive(client *binance.Client, symbol string, fee decimal.Decimal, base, quote currency.Currency, log *zap.SugaredLogger) *Live {
	return &Live{
		client:       client,
		symbol:       symbol,
		fee:          fee,
		base:         base,
		quote:        quote,
		pollInterval: defaultPollInterval,
		fillTimeout:  defaultFillTimeout,
		log:          log,
	}
}

func (l *Live) Trade(ctx context.Context, side Side, amount, price decimal.Decimal) (*Fill, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	svc := l.client.NewCreateOrderService().
		Symbol(l.symbol).
		Type(binance.OrderTypeMarket)
	switch side {
	case Buy:
		// A buy spends quote currency, so size the order by quote amount.
		svc = svc.Side(binance.SideTypeBuy).QuoteOrderQty(amount.String())
	case Sell:
		svc = svc.Side(binance.SideTypeSell).Quantity(amount.String())
	default:
		return nil, fmt.Errorf("unknown trade side %q", side)
	}
	placed, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: place order: %v", ErrNoFill, err)
	}

	order, err := l.pollFill(ctx, placed.OrderID)
	if err != nil {
		return nil, err
	}
	return l.fillFromOrder(side, order)
}

func (l *Live) pollFill(ctx context.Context, orderID int64) (*binance.Order, error) {
	deadline := time.NewTimer(l.fillTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		order, err := l.client.NewGetOrderService().
			Symbol(l.symbol).
			OrderID(orderID).
			Do(ctx)
		if err != nil {
			l.log.Warnw("order status query failed", "order_id", orderID, "err", err)
		} else {
			switch order.Status {
			case binance.OrderStatusTypeFilled:
				return order, nil
			case binance.OrderStatusTypeCanceled,
				binance.OrderStatusTypeRejected,
				binance.OrderStatusTypeExpired:
				return nil, fmt.Errorf("%w: order %d ended %s", ErrNoFill, orderID, order.Status)
			}
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return nil, fmt.Errorf("%w: order %d not confirmed within %s", ErrNoFill, orderID, l.fillTimeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Live) fillFromOrder(side Side, order *binance.Order) (*Fill, error) {
	executedQty, err := decimal.NewFromString(order.ExecutedQuantity)
	if err != nil {
		return nil, fmt.Errorf("%w: executed qty %q", ErrNoFill, order.ExecutedQuantity)
	}
	cumQuote, err := decimal.NewFromString(order.CummulativeQuoteQuantity)
	if err != nil {
		return nil, fmt.Errorf("%w: cumulative quote %q", ErrNoFill, order.CummulativeQuoteQuantity)
	}
	keep := one.Sub(l.fee)
	switch side {
	case Buy:
		return &Fill{
			Spent:    cumQuote,
			Received: l.base.Normalize(executedQty.Mul(keep)),
		}, nil
	case Sell:
		return &Fill{
			Spent:    executedQty,
			Received: l.quote.Normalize(cumQuote.Mul(keep)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown trade side %q", side)
	}
}

var _ Executor = (*Live)(nil)
