package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grid-hands/internal/config"
	"grid-hands/internal/histdata"
	"grid-hands/internal/logger"
)

func main() {
	var (
		symbol   string
		interval string
		out      string
		startStr string
		endStr   string
	)
	flag.StringVar(&symbol, "symbol", "BTCUSDT", "trading symbol")
	flag.StringVar(&interval, "interval", "1m", "kline interval")
	flag.StringVar(&out, "out", "", "output csv path (default data/<symbol>-<interval>-<start>.csv)")
	flag.StringVar(&startStr, "start", "", "start date, YYYY-MM-DD")
	flag.StringVar(&endStr, "end", "", "end date, YYYY-MM-DD (default now)")
	flag.Parse()

	log := logger.Init(config.LogConfig{Level: "info", Console: true})
	defer log.Sync()

	if startStr == "" {
		fatal("start date is required")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		fatal(fmt.Sprintf("invalid start date: %v", err))
	}
	end := time.Now().UTC()
	if endStr != "" {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			fatal(fmt.Sprintf("invalid end date: %v", err))
		}
	}
	if !start.Before(end) {
		fatal("start must be before end")
	}
	if out == "" {
		out = fmt.Sprintf("data/%s-%s-%s.csv", symbol, interval, startStr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := histdata.NewDownloader(log).Download(ctx, symbol, interval, out, start, end); err != nil {
		fatal(err.Error())
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
