package bot

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"grid-hands/internal/feed"
)

// Runner drives a bot from a price feed until the feed completes or the
// context is canceled. Replay feeds complete with io.EOF; live feeds run
// until shutdown.
type Runner struct {
	feed feed.Feed
	bot  *Bot
	log  *zap.SugaredLogger
}

func NewRunner(f feed.Feed, b *Bot, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{feed: f, bot: b, log: log}
}

func (r *Runner) Run(ctx context.Context) (*Results, error) {
	for {
		select {
		case <-ctx.Done():
			r.bot.saveSnapshot()
			return r.bot.Results(), ctx.Err()
		default:
		}
		tick, err := r.feed.Next()
		if errors.Is(err, io.EOF) || errors.Is(err, feed.ErrFeedClosed) {
			r.bot.saveSnapshot()
			return r.bot.Results(), nil
		}
		if err != nil {
			return nil, err
		}
		if err := r.bot.OnPrice(ctx, tick); err != nil {
			// Bad ticks are skipped; the run itself keeps going.
			r.log.Warnw("tick not evaluated", "price", tick.Price.String(), "err", err)
		}
	}
}
