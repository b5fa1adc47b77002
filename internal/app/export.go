package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"swing-alerts/internal/market"
)

// Export renders a cached bar series as CSV and/or a close-price PNG chart.
func (a *App) Export(opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Symbol == "" {
		return errors.New("--symbol is required")
	}
	if !opts.Timeframe.Valid() {
		return fmt.Errorf("unknown timeframe %q", opts.Timeframe)
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	dataCache, err := a.newCache()
	if err != nil {
		return err
	}

	bars, fetchedAt, ok := dataCache.CachedBars(opts.Symbol, opts.Timeframe)
	if !ok || len(bars) == 0 {
		return fmt.Errorf("no cached %s bars for %s; run a scan first", opts.Timeframe, opts.Symbol)
	}
	bars = bars.Tail(opts.MaxPoints)

	if opts.CSVPath != "" {
		if err := writeCSV(opts.CSVPath, bars); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Int("bars", len(bars)).Msg("csv exported")
	}

	if opts.PNGPath != "" {
		if err := writePNG(opts.PNGPath, opts.Symbol, opts.Timeframe, bars); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Int("bars", len(bars)).Msg("png exported")
	}

	a.Logger.Debug().Time("fetched_at", fetchedAt).Msg("export source freshness")
	return nil
}

func writeCSV(path string, bars market.Bars) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, bar := range bars {
		record := []string{
			bar.Date.UTC().Format(time.RFC3339),
			bar.Open.String(),
			bar.High.String(),
			bar.Low.String(),
			bar.Close.String(),
			fmt.Sprintf("%d", bar.Volume),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writePNG(path, symbol string, tf market.Timeframe, bars market.Bars) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	xs := make([]time.Time, 0, len(bars))
	ys := make([]float64, 0, len(bars))
	for _, bar := range bars {
		xs = append(xs, bar.Date)
		value, _ := bar.Close.Float64()
		ys = append(ys, value)
	}

	graph := chart.Chart{
		Title: fmt.Sprintf("%s close (%s)", symbol, tf),
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "close",
				XValues: xs,
				YValues: ys,
			},
		},
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png file: %w", err)
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
