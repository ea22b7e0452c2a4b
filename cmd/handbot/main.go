package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/joho/godotenv"

	"grid-hands/internal/bot"
	"grid-hands/internal/config"
	"grid-hands/internal/exchange"
	"grid-hands/internal/feed"
	"grid-hands/internal/logger"
	"grid-hands/internal/reporter"
	"grid-hands/internal/store"
	"grid-hands/internal/trader"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.Parse()

	// Credentials may live in a local .env instead of the config file.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	log := logger.Init(cfg.Log)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case config.ModeReplay:
		runReplay(ctx, cfg)
	case config.ModeLive:
		runLive(ctx, cfg)
	default:
		fatal("unknown mode")
	}
}

func runReplay(ctx context.Context, cfg config.Config) {
	log := logger.S()
	meta := exchange.FromReplay(cfg.Symbol, cfg.Replay)
	exec := &trader.SimExecutor{Sim: &trader.Simulator{
		Fee:   cfg.Strategy.Fee.Decimal,
		Base:  meta.Base,
		Quote: meta.Quote,
	}}
	b, err := bot.FromConfig(cfg, meta, exec, nil, log)
	if err != nil {
		fatal(err.Error())
	}
	src, err := feed.NewHistory(cfg.Replay.DataPaths, feed.HistoryOptions{
		Symbol:      cfg.Symbol,
		PriceColumn: cfg.Replay.PriceColumn,
		TimeColumn:  cfg.Replay.TimeColumnIndex(),
		Ceiling:     cfg.Strategy.PriceCeiling.Decimal,
	}, log)
	if err != nil {
		fatal(err.Error())
	}
	defer src.Close()

	results, err := bot.NewRunner(src, b, log).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("replay canceled")
			return
		}
		fatal(err.Error())
	}
	reporter.WriteResults(os.Stdout, results)
}

func runLive(ctx context.Context, cfg config.Config) {
	log := logger.S()

	stateDir := filepath.Join(cfg.Store.Dir, strings.ToLower(cfg.Symbol))
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		fatal(err.Error())
	}
	lock, err := store.AcquireBotLock(stateDir, cfg.BotID, store.LockOptions{
		TakeoverEnabled: cfg.Store.LockTakeover != nil && *cfg.Store.LockTakeover,
		StaleAfter:      time.Duration(cfg.Store.LockStaleSec) * time.Second,
	})
	if err != nil {
		fatal(err.Error())
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			log.Warnw("release bot lock failed", "err", relErr)
		}
	}()

	st, err := store.Open(stateDir, cfg.BotID)
	if err != nil {
		fatal(err.Error())
	}
	defer st.Close()

	binance.UseTestnet = cfg.Exchange.Testnet
	client := binance.NewClient(cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	meta, err := exchange.NewBinance(client).SymbolMeta(ctx, cfg.Symbol)
	if err != nil {
		fatal(err.Error())
	}
	log.Infow("symbol metadata resolved",
		"symbol", meta.Symbol,
		"base_min", meta.Base.MinSize.String(),
		"min_funds", meta.MinFunds.String())

	exec := trader.NewLive(client, cfg.Symbol, cfg.Strategy.Fee.Decimal, meta.Base, meta.Quote, log)
	b, err := bot.FromConfig(cfg, meta, exec, st, log)
	if err != nil {
		fatal(err.Error())
	}

	src := feed.NewLive(cfg.Exchange.WSBaseURL, cfg.Symbol, cfg.Strategy.PriceCeiling.Decimal, log)
	go func() {
		<-ctx.Done()
		_ = src.Close()
	}()

	if _, err := bot.NewRunner(src, b, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err.Error())
	}
	log.Infow("bot stopped", "bot_id", cfg.BotID)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
