// Package earnings blocks alerts inside the blackout window around a
// scheduled earnings report, when price action is too erratic for zone
// signals to mean much.
package earnings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swing-alerts/internal/fetcher"
)

// Options tune the blackout filter.
type Options struct {
	CacheFile  string
	MaxAge     time.Duration
	DaysBefore int
	DaysAfter  int
}

type entry struct {
	ReportDate string    `json:"report_date,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Filter caches next-earnings dates per symbol and answers whether a symbol
// is currently inside its blackout window. Calendar lookups degrade
// gracefully: if the calendar cannot be fetched the symbol is not blocked.
type Filter struct {
	mu      sync.Mutex
	opts    Options
	calv    fetcher.EarningsFetcher
	logger  zerolog.Logger
	entries map[string]entry

	now func() time.Time
}

// New loads the cached calendar and returns a filter. A missing or corrupt
// cache file yields an empty calendar.
func New(opts Options, calendar fetcher.EarningsFetcher, logger zerolog.Logger) (*Filter, error) {
	if opts.MaxAge <= 0 {
		opts.MaxAge = 30 * 24 * time.Hour
	}
	if opts.DaysBefore <= 0 {
		opts.DaysBefore = 3
	}
	if opts.DaysAfter <= 0 {
		opts.DaysAfter = 2
	}
	if opts.CacheFile == "" {
		return nil, fmt.Errorf("earnings: cache file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.CacheFile), 0o755); err != nil {
		return nil, fmt.Errorf("create earnings cache directory: %w", err)
	}

	f := &Filter{
		opts:    opts,
		calv:    calendar,
		logger:  logger.With().Str("component", "earnings_filter").Logger(),
		entries: make(map[string]entry),
		now:     time.Now,
	}
	f.load()
	return f, nil
}

func (f *Filter) load() {
	data, err := os.ReadFile(f.opts.CacheFile)
	if err != nil {
		return
	}
	var entries map[string]entry
	if err := json.Unmarshal(data, &entries); err != nil {
		f.logger.Warn().Err(err).Msg("corrupt earnings cache; starting empty")
		return
	}
	f.entries = entries
}

func (f *Filter) persistLocked() {
	data, err := json.MarshalIndent(f.entries, "", "  ")
	if err != nil {
		f.logger.Warn().Err(err).Msg("marshal earnings cache failed")
		return
	}
	if err := os.WriteFile(f.opts.CacheFile, data, 0o644); err != nil {
		f.logger.Warn().Err(err).Msg("write earnings cache failed")
	}
}

// ShouldBlock reports whether the symbol is inside its earnings blackout
// window (DaysBefore days before through DaysAfter days after the report).
func (f *Filter) ShouldBlock(ctx context.Context, symbol string) bool {
	report, ok := f.reportDate(ctx, symbol)
	if !ok {
		return false
	}

	today := f.now().UTC().Truncate(24 * time.Hour)
	start := report.AddDate(0, 0, -f.opts.DaysBefore)
	end := report.AddDate(0, 0, f.opts.DaysAfter)
	return !today.Before(start) && !today.After(end)
}

func (f *Filter) reportDate(ctx context.Context, symbol string) (time.Time, bool) {
	f.mu.Lock()
	cached, ok := f.entries[symbol]
	f.mu.Unlock()

	if ok && f.now().Sub(cached.FetchedAt) <= f.opts.MaxAge {
		return parseDate(cached.ReportDate)
	}

	date, found, err := f.calv.NextEarnings(ctx, symbol)
	if err != nil {
		f.logger.Warn().Err(err).Str("symbol", symbol).Msg("earnings lookup failed; not blocking")
		if ok {
			// Stale data beats none when the calendar is down.
			return parseDate(cached.ReportDate)
		}
		return time.Time{}, false
	}

	fresh := entry{FetchedAt: f.now().UTC()}
	if found {
		fresh.ReportDate = date.Format("2006-01-02")
	}

	f.mu.Lock()
	f.entries[symbol] = fresh
	f.persistLocked()
	f.mu.Unlock()

	return date, found
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	date, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
