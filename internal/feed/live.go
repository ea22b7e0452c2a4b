package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
	reconnectBackoff = 5 * time.Second
)

var ErrFeedClosed = errors.New("live feed closed")

// LiveFeed streams aggregate-trade prices over a websocket. It maintains
// the connection itself: ping/pong keepalive, and reconnect with a fixed
// backoff when the read loop fails. It never signals completion; the run
// ends when the owning process stops it.
type LiveFeed struct {
	baseURL string
	symbol  string
	ceiling decimal.Decimal
	ticks   chan Tick
	done    chan struct{}
	log     *zap.SugaredLogger
}

func NewLive(baseURL, symbol string, ceiling decimal.Decimal, log *zap.SugaredLogger) *LiveFeed {
	if ceiling.Sign() <= 0 {
		ceiling = DefaultPriceCeiling
	}
	f := &LiveFeed{
		baseURL: baseURL,
		symbol:  symbol,
		ceiling: ceiling,
		ticks:   make(chan Tick, 64),
		done:    make(chan struct{}),
		log:     log,
	}
	go f.run()
	return f
}

func (f *LiveFeed) Next() (Tick, error) {
	select {
	case tick := <-f.ticks:
		return tick, nil
	case <-f.done:
		return Tick{}, ErrFeedClosed
	}
}

func (f *LiveFeed) Close() error {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	return nil
}

func (f *LiveFeed) run() {
	url := fmt.Sprintf("%s/ws/%s@aggTrade", f.baseURL, strings.ToLower(f.symbol))
	for {
		select {
		case <-f.done:
			return
		default:
		}
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			f.log.Warnw("websocket dial failed, retrying", "url", url, "err", err)
			f.sleep(reconnectBackoff)
			continue
		}
		f.log.Infow("price stream connected", "symbol", f.symbol)
		if err := f.readLoop(conn); err != nil {
			f.log.Warnw("price stream dropped, reconnecting", "err", err)
		}
		_ = conn.Close()
		f.sleep(reconnectBackoff)
	}
}

func (f *LiveFeed) readLoop(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	pingStop := make(chan struct{})
	defer close(pingStop)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingStop:
				return
			case <-f.done:
				return
			}
		}
	}()

	for {
		select {
		case <-f.done:
			return nil
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event struct {
			Price     json.Number `json:"p"`
			TradeTime int64       `json:"T"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			f.log.Debugw("unparseable stream message, skipping", "err", err)
			continue
		}
		price, err := decimal.NewFromString(event.Price.String())
		if err != nil {
			f.log.Debugw("non-numeric stream price, skipping", "value", event.Price.String())
			continue
		}
		if !ValidPrice(price, f.ceiling) {
			f.log.Warnw("stream price outside validity bounds, skipping", "price", price.String())
			continue
		}
		at := time.Now().UTC()
		if event.TradeTime > 0 {
			at = time.UnixMilli(event.TradeTime).UTC()
		}
		select {
		case f.ticks <- Tick{Symbol: f.symbol, Price: price, At: at}:
		case <-f.done:
			return nil
		}
	}
}

func (f *LiveFeed) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-f.done:
	}
}

var _ Feed = (*LiveFeed)(nil)
