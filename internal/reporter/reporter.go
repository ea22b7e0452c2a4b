// Package reporter renders run results and sweep rankings as console
// tables.
package reporter

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"grid-hands/internal/bot"
)

// WriteResults prints a single run's outcome.
func WriteResults(w io.Writer, r *bot.Results) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Run %s %s", r.BotID, r.Symbol)
	t.AppendRows([]table.Row{
		{"buys", r.Buys},
		{"sells", r.Sells},
		{"trades", r.Trades},
		{"quote balance", r.QuoteBalance.String()},
		{"base balance", r.BaseBalance.String()},
		{"last price", r.LastPrice.String()},
		{"lowest price", r.LowestPrice.String()},
		{"highest price", r.HighestPrice.String()},
		{"start value", r.StartValue.String()},
		{"mark to market", r.MarkToMarket.String()},
		{"liquidation at target", r.LiquidationValue.String()},
		{"mark-to-market profit %", r.MarkToMarketProfitPct.StringFixed(2)},
		{"liquidation profit %", r.ProfitPct.StringFixed(2)},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// SweepRow is one ranked strategy variant of a parameter sweep.
type SweepRow struct {
	Rank             int
	HandSpanPercent  string
	Policy           string
	Hands            int
	Trades           int
	ProfitPct        string
	LiquidationValue string
}

// WriteSweep prints sweep variants best-first.
func WriteSweep(w io.Writer, rows []SweepRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Sweep ranking")
	t.AppendHeader(table.Row{"#", "span %", "policy", "hands", "trades", "profit %", "liquidation"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Rank, r.HandSpanPercent, r.Policy, r.Hands, r.Trades, r.ProfitPct, r.LiquidationValue})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}
