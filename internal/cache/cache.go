// Package cache persists fetched OHLCV series and zone snapshots to local
// files and merges overlapping fetches so intraday scans neither grow the
// history unbounded nor lose it on a partial fetch. The cache is strictly
// an optimization layer: every I/O failure degrades to a miss or a no-op
// and the injected fetch capability remains the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swing-alerts/internal/market"
)

const envelopeVersion = 1

// FetchBarsFunc is the injected capability that obtains fresh bars for a
// symbol. Returning an empty series with a nil error means "no data"; the
// cache performs no retries.
type FetchBarsFunc func(ctx context.Context, symbol string) (market.Bars, error)

// FetchZonesFunc obtains fresh zone records for a symbol.
type FetchZonesFunc func(ctx context.Context, symbol string) ([]market.Zone, error)

// Options tune retention and freshness per cache kind.
type Options struct {
	Dir             string
	DailyMaxAge     time.Duration
	HourlyMaxAge    time.Duration
	ZoneMaxAge      time.Duration
	DailyRetention  int
	HourlyRetention int
}

func (o *Options) applyDefaults() {
	if o.DailyMaxAge <= 0 {
		o.DailyMaxAge = 24 * time.Hour
	}
	if o.HourlyMaxAge <= 0 {
		o.HourlyMaxAge = 4 * time.Hour
	}
	if o.ZoneMaxAge <= 0 {
		o.ZoneMaxAge = 24 * time.Hour
	}
	if o.DailyRetention <= 0 {
		o.DailyRetention = 200
	}
	if o.HourlyRetention <= 0 {
		o.HourlyRetention = 120
	}
}

// Info summarises the backing store for diagnostics.
type Info struct {
	BarFiles       int
	ZoneFiles      int
	TotalSizeBytes int64
	Dir            string
}

// Cache stores bar series per (symbol, timeframe) and zone snapshots per
// symbol. Callers for the same key serialize on a per-key lock so at most
// one fetch-and-merge runs per key; a waiting caller observes the completed
// merge instead of fetching again.
type Cache struct {
	opts     Options
	ohlcvDir string
	zonesDir string
	logger   zerolog.Logger

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex

	now func() time.Time
}

// New creates the cache directories idempotently.
func New(opts Options, logger zerolog.Logger) (*Cache, error) {
	opts.applyDefaults()
	if opts.Dir == "" {
		return nil, fmt.Errorf("cache: directory is required")
	}

	c := &Cache{
		opts:     opts,
		ohlcvDir: filepath.Join(opts.Dir, "ohlcv"),
		zonesDir: filepath.Join(opts.Dir, "zones"),
		logger:   logger.With().Str("component", "cache").Logger(),
		keyLocks: make(map[string]*sync.Mutex),
		now:      time.Now,
	}

	for _, dir := range []string{c.ohlcvDir, c.zonesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	return c, nil
}

type barEnvelope struct {
	Version   int              `json:"version"`
	Symbol    string           `json:"symbol"`
	Timeframe market.Timeframe `json:"timeframe"`
	FetchedAt time.Time        `json:"fetched_at"`
	Bars      market.Bars      `json:"bars"`
}

type zoneEnvelope struct {
	Version   int             `json:"version"`
	Symbol    string          `json:"symbol"`
	FetchedAt time.Time       `json:"fetched_at"`
	Zones     json.RawMessage `json:"zones"`
}

func (c *Cache) barFile(symbol string, tf market.Timeframe) string {
	return filepath.Join(c.ohlcvDir, fmt.Sprintf("%s_%s.json", symbol, tf))
}

func (c *Cache) zoneFile(symbol string) string {
	return filepath.Join(c.zonesDir, fmt.Sprintf("%s_zones.json", symbol))
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.keyLocks[key] = lock
	}
	return lock
}

func (c *Cache) retention(tf market.Timeframe) int {
	if tf == market.TimeframeHourly {
		return c.opts.HourlyRetention
	}
	return c.opts.DailyRetention
}

func (c *Cache) barMaxAge(tf market.Timeframe) time.Duration {
	if tf == market.TimeframeHourly {
		return c.opts.HourlyMaxAge
	}
	return c.opts.DailyMaxAge
}

// GetOrFetchBars returns the cached series when it is younger than the
// timeframe's freshness window, otherwise fetches, merges into any existing
// cache (using even a stale one as merge base), persists, and returns the
// merged series. An empty fetch result yields an empty series with no cache
// mutation; a fetch error propagates. Cache I/O never fails the call.
func (c *Cache) GetOrFetchBars(ctx context.Context, symbol string, tf market.Timeframe, fetch FetchBarsFunc, forceRefresh bool) (market.Bars, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("cache: unknown timeframe %q", tf)
	}

	lock := c.keyLock(string(tf) + "/" + symbol)
	lock.Lock()
	defer lock.Unlock()

	if !forceRefresh {
		if bars, fetchedAt, ok := c.loadBars(symbol, tf); ok {
			if c.now().Sub(fetchedAt) <= c.barMaxAge(tf) {
				return bars, nil
			}
		}
	}

	fresh, err := fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s bars: %w", symbol, tf, err)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	cached, _, _ := c.loadBars(symbol, tf)
	merged := MergeBars(cached, fresh, c.retention(tf))
	c.saveBars(symbol, tf, merged)

	return merged, nil
}

// GetOrFetchZones behaves like GetOrFetchBars but each fetch fully replaces
// the prior snapshot; zones are never merged.
func (c *Cache) GetOrFetchZones(ctx context.Context, symbol string, fetch FetchZonesFunc, forceRefresh bool) ([]market.Zone, error) {
	lock := c.keyLock("zones/" + symbol)
	lock.Lock()
	defer lock.Unlock()

	if !forceRefresh {
		if zones, fetchedAt, ok := c.loadZones(symbol); ok {
			if c.now().Sub(fetchedAt) <= c.opts.ZoneMaxAge {
				return zones, nil
			}
		}
	}

	fresh, err := fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s zones: %w", symbol, err)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	c.saveZones(symbol, fresh)
	return fresh, nil
}

// CachedBars returns the persisted series for a key regardless of its age,
// for diagnostics and export. The boolean is false on a miss.
func (c *Cache) CachedBars(symbol string, tf market.Timeframe) (market.Bars, time.Time, bool) {
	lock := c.keyLock(string(tf) + "/" + symbol)
	lock.Lock()
	defer lock.Unlock()
	return c.loadBars(symbol, tf)
}

func (c *Cache) loadBars(symbol string, tf market.Timeframe) (market.Bars, time.Time, bool) {
	data, err := os.ReadFile(c.barFile(symbol, tf))
	if err != nil {
		return nil, time.Time{}, false
	}

	var env barEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).Msg("corrupt bar cache; treating as miss")
		return nil, time.Time{}, false
	}

	bars := env.Bars
	bars.SortByDate()
	return bars.Tail(c.retention(tf)), env.FetchedAt, true
}

func (c *Cache) saveBars(symbol string, tf market.Timeframe, bars market.Bars) {
	env := barEnvelope{
		Version:   envelopeVersion,
		Symbol:    symbol,
		Timeframe: tf,
		FetchedAt: c.now().UTC(),
		Bars:      bars,
	}
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("marshal bar cache failed")
		return
	}
	if err := c.writeAtomic(c.barFile(symbol, tf), data); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).Msg("write bar cache failed")
	}
}

func (c *Cache) loadZones(symbol string) ([]market.Zone, time.Time, bool) {
	data, err := os.ReadFile(c.zoneFile(symbol))
	if err != nil {
		return nil, time.Time{}, false
	}

	var env zoneEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("corrupt zone cache; treating as miss")
		return nil, time.Time{}, false
	}

	zones, err := market.DecodeZones(env.Zones)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("corrupt zone records; treating as miss")
		return nil, time.Time{}, false
	}
	return zones, env.FetchedAt, true
}

func (c *Cache) saveZones(symbol string, zones []market.Zone) {
	encoded, err := market.EncodeZones(zones)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("marshal zone cache failed")
		return
	}
	env := zoneEnvelope{
		Version:   envelopeVersion,
		Symbol:    symbol,
		FetchedAt: c.now().UTC(),
		Zones:     encoded,
	}
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("marshal zone envelope failed")
		return
	}
	if err := c.writeAtomic(c.zoneFile(symbol), data); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("write zone cache failed")
	}
}

// writeAtomic stages the document next to its target and renames it into
// place so readers never observe a partially written cache entry.
func (c *Cache) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Clear deletes matching cache files. An empty symbol matches every symbol
// and an empty timeframe matches bars of both timeframes plus zones.
// Returns the number of files removed.
func (c *Cache) Clear(symbol string, tf market.Timeframe) (int, error) {
	if tf != "" && !tf.Valid() {
		return 0, fmt.Errorf("cache: unknown timeframe %q", tf)
	}

	if symbol != "" && tf != "" {
		return removeAll(c.barFile(symbol, tf))
	}

	if symbol != "" {
		return removeAll(
			c.barFile(symbol, market.TimeframeDaily),
			c.barFile(symbol, market.TimeframeHourly),
			c.zoneFile(symbol),
		)
	}

	removed := 0
	for _, kind := range []struct {
		dir  string
		glob string
	}{
		{c.ohlcvDir, "*.json"},
		{c.zonesDir, "*_zones.json"},
	} {
		if tf != "" && kind.dir == c.zonesDir {
			continue
		}
		glob := kind.glob
		if tf != "" {
			glob = fmt.Sprintf("*_%s.json", tf)
		}
		matches, err := filepath.Glob(filepath.Join(kind.dir, glob))
		if err != nil {
			return removed, err
		}
		n, err := removeAll(matches...)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func removeAll(paths ...string) (int, error) {
	removed := 0
	for _, path := range paths {
		err := os.Remove(path)
		if err == nil {
			removed++
			continue
		}
		if !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove cache file: %w", err)
		}
	}
	return removed, nil
}

// Info reports file counts and total size of the backing store.
func (c *Cache) Info() (Info, error) {
	info := Info{Dir: c.opts.Dir}

	count := func(dir, suffix string) (int, int64, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return 0, 0, err
		}
		files, size := 0, int64(0)
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
				continue
			}
			fi, err := entry.Info()
			if err != nil {
				continue
			}
			files++
			size += fi.Size()
		}
		return files, size, nil
	}

	barFiles, barSize, err := count(c.ohlcvDir, ".json")
	if err != nil {
		return info, fmt.Errorf("inspect ohlcv cache: %w", err)
	}
	zoneFiles, zoneSize, err := count(c.zonesDir, ".json")
	if err != nil {
		return info, fmt.Errorf("inspect zone cache: %w", err)
	}

	info.BarFiles = barFiles
	info.ZoneFiles = zoneFiles
	info.TotalSizeBytes = barSize + zoneSize
	return info, nil
}
