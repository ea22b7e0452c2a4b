package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HistoryFeed replays price rows from one or more CSV files in path order,
// row order. A configurable column index selects the price column, so the
// same feed reads raw tick dumps and kline exports alike. Every valid row
// is one tick; rows that do not parse are skipped with a diagnostic, which
// keeps a replay of the same files byte-for-byte repeatable.
type HistoryFeed struct {
	symbol   string
	paths    []string
	column   int
	timeCol  int
	ceiling  decimal.Decimal
	index    int
	file     *os.File
	reader   *csv.Reader
	log      *zap.SugaredLogger
	rowsRead int
}

type HistoryOptions struct {
	Symbol      string
	PriceColumn int
	// TimeColumn < 0 means the files carry no timestamp column.
	TimeColumn int
	Ceiling    decimal.Decimal
}

func NewHistory(paths []string, opts HistoryOptions, log *zap.SugaredLogger) (*HistoryFeed, error) {
	if len(paths) == 0 {
		return nil, errors.New("at least one history file required")
	}
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)
	ceiling := opts.Ceiling
	if ceiling.Sign() <= 0 {
		ceiling = DefaultPriceCeiling
	}
	f := &HistoryFeed{
		symbol:  opts.Symbol,
		paths:   sorted,
		column:  opts.PriceColumn,
		timeCol: opts.TimeColumn,
		ceiling: ceiling,
		log:     log,
	}
	if err := f.openCurrent(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *HistoryFeed) Next() (Tick, error) {
	for {
		if f.reader == nil {
			if err := f.openCurrent(); err != nil {
				return Tick{}, err
			}
		}
		row, err := f.reader.Read()
		if err == io.EOF {
			_ = f.closeCurrent()
			f.index++
			if f.index >= len(f.paths) {
				return Tick{}, io.EOF
			}
			continue
		}
		if err != nil {
			return Tick{}, err
		}
		f.rowsRead++
		if f.column >= len(row) {
			f.log.Debugw("row too short, skipping", "file", f.paths[f.index], "row", f.rowsRead)
			continue
		}
		raw := strings.TrimSpace(row[f.column])
		price, err := decimal.NewFromString(raw)
		if err != nil {
			// Typically the header row.
			f.log.Debugw("non-numeric price, skipping row", "file", f.paths[f.index], "value", raw)
			continue
		}
		if !ValidPrice(price, f.ceiling) {
			f.log.Warnw("price outside validity bounds, skipping row",
				"file", f.paths[f.index], "price", price.String())
			continue
		}
		return Tick{Symbol: f.symbol, Price: price, At: f.rowTime(row)}, nil
	}
}

func (f *HistoryFeed) rowTime(row []string) time.Time {
	if f.timeCol < 0 || f.timeCol >= len(row) {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(row[f.timeCol]), 10, 64)
	if err != nil {
		return time.Time{}
	}
	if ms >= 1_000_000_000_000 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Unix(ms, 0).UTC()
}

func (f *HistoryFeed) openCurrent() error {
	if f.index >= len(f.paths) {
		return io.EOF
	}
	file, err := os.Open(f.paths[f.index])
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	f.file = file
	f.reader = reader
	return nil
}

func (f *HistoryFeed) closeCurrent() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	f.reader = nil
	return err
}

func (f *HistoryFeed) Close() error {
	return f.closeCurrent()
}

var _ Feed = (*HistoryFeed)(nil)
