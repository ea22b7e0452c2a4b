// Package histdata fetches historical klines and writes them as the CSV
// layout the replay feed reads.
package histdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
)

const (
	batchLimit = 1000
	// Public kline endpoints rate-limit by weight; a short pause between
	// batches keeps a long download well inside the budget.
	batchPause = 200 * time.Millisecond
)

type Downloader struct {
	client *binance.Client
	log    *zap.SugaredLogger
}

// NewDownloader uses unauthenticated market-data endpoints.
func NewDownloader(log *zap.SugaredLogger) *Downloader {
	return &Downloader{client: binance.NewClient("", ""), log: log}
}

// Download writes the symbol's klines for [start, end) to path. An existing
// file is treated as a completed earlier download and left untouched.
func (d *Downloader) Download(ctx context.Context, symbol, interval, path string, start, end time.Time) error {
	if _, err := os.Stat(path); err == nil {
		d.log.Infow("data already downloaded", "path", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := path + ".partial"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	defer file.Close()
	defer os.Remove(tmp)

	writer := csv.NewWriter(file)
	header := []string{"open_time", "open", "high", "low", "close", "volume", "close_time"}
	if err := writer.Write(header); err != nil {
		return err
	}

	d.log.Infow("downloading klines",
		"symbol", symbol, "interval", interval,
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))

	rows := 0
	for cursor := start; cursor.Before(end); {
		klines, err := d.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(cursor.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(batchLimit).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("fetch klines: %w", err)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			record := []string{
				strconv.FormatInt(k.OpenTime, 10),
				k.Open, k.High, k.Low, k.Close, k.Volume,
				strconv.FormatInt(k.CloseTime, 10),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		rows += len(klines)
		cursor = time.UnixMilli(klines[len(klines)-1].CloseTime + 1)
		d.log.Debugw("batch written", "rows", rows, "cursor", cursor.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(batchPause):
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	d.log.Infow("download complete", "path", path, "rows", rows)
	return nil
}
