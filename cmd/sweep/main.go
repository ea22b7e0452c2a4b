package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"grid-hands/internal/config"
	"grid-hands/internal/logger"
	"grid-hands/internal/reporter"
	"grid-hands/internal/sweep"
)

func main() {
	var (
		configPath string
		spansFlag  string
		policies   string
	)
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.StringVar(&spansFlag, "spans", "", "comma-separated hand span percents to try, e.g. 2,5,10")
	flag.StringVar(&policies, "policies", "standard,trailing", "comma-separated policies to try")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	log := logger.Init(cfg.Log)
	defer log.Sync()

	spans, err := sweep.ParseSpans(splitList(spansFlag))
	if err != nil {
		fatal(err.Error())
	}
	var pols []config.Policy
	for _, p := range splitList(policies) {
		pols = append(pols, config.Policy(p))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes, err := sweep.Run(ctx, sweep.Params{Cfg: cfg, Spans: spans, Policies: pols, Log: log})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("sweep canceled")
			return
		}
		fatal(err.Error())
	}

	rows := make([]reporter.SweepRow, 0, len(outcomes))
	for i, o := range outcomes {
		rows = append(rows, reporter.SweepRow{
			Rank:             i + 1,
			HandSpanPercent:  o.HandSpanPercent.String(),
			Policy:           string(o.Policy),
			Hands:            o.Hands,
			Trades:           o.Results.Trades,
			ProfitPct:        o.Results.ProfitPct.StringFixed(2),
			LiquidationValue: o.Results.LiquidationValue.String(),
		})
	}
	reporter.WriteSweep(os.Stdout, rows)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
