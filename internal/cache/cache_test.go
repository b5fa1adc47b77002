package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"swing-alerts/internal/market"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(Options{Dir: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func countingFetcher(bars market.Bars) (FetchBarsFunc, *int) {
	calls := 0
	return func(ctx context.Context, symbol string) (market.Bars, error) {
		calls++
		return bars, nil
	}, &calls
}

func TestGetOrFetchBarsServesFreshCache(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fetch, calls := countingFetcher(dailyBars(start, 10, 10))

	first, err := c.GetOrFetchBars(ctx, "AAPL", market.TimeframeDaily, fetch, false)
	if err != nil {
		t.Fatalf("first GetOrFetchBars: %v", err)
	}
	if len(first) != 10 {
		t.Fatalf("expected 10 bars, got %d", len(first))
	}

	second, err := c.GetOrFetchBars(ctx, "AAPL", market.TimeframeDaily, fetch, false)
	if err != nil {
		t.Fatalf("second GetOrFetchBars: %v", err)
	}
	if *calls != 1 {
		t.Fatalf("fresh cache must not refetch; fetch ran %d times", *calls)
	}
	if len(second) != 10 {
		t.Fatalf("expected cached 10 bars, got %d", len(second))
	}
}

func TestGetOrFetchBarsRefreshesStaleAndMerges(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed, _ := countingFetcher(dailyBars(start, 10, 10))
	if _, err := c.GetOrFetchBars(ctx, "AAPL", market.TimeframeDaily, seed, false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Age the entry past the daily freshness window. The stale cache must
	// still serve as the merge base.
	c.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	update, calls := countingFetcher(dailyBars(start.AddDate(0, 0, 8), 5, 20))
	merged, err := c.GetOrFetchBars(ctx, "AAPL", market.TimeframeDaily, update, false)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if *calls != 1 {
		t.Fatalf("stale cache must trigger exactly one fetch, got %d", *calls)
	}
	if len(merged) != 13 {
		t.Fatalf("expected 10+5 with 2 overlaps = 13 bars, got %d", len(merged))
	}
	for _, bar := range merged {
		if bar.Date.Equal(start.AddDate(0, 0, 8)) && !bar.Close.Equal(decimal.NewFromInt(20)) {
			t.Fatalf("overlap must carry the fresh close, got %s", bar.Close)
		}
	}
}

func TestGetOrFetchBarsEmptyFetchNoMutation(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	empty := func(ctx context.Context, symbol string) (market.Bars, error) { return nil, nil }
	bars, err := c.GetOrFetchBars(ctx, "AAPL", market.TimeframeDaily, empty, true)
	if err != nil {
		t.Fatalf("GetOrFetchBars: %v", err)
	}
	if len(bars) != 0 {
		t.Fatalf("expected empty result, got %d bars", len(bars))
	}

	info, err := c.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.BarFiles != 0 {
		t.Fatalf("empty fetch must not write a cache file, found %d", info.BarFiles)
	}
}

func TestGetOrFetchBarsForceRefresh(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fetch, calls := countingFetcher(dailyBars(start, 10, 10))

	if _, err := c.GetOrFetchBars(ctx, "AAPL", market.TimeframeDaily, fetch, false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := c.GetOrFetchBars(ctx, "AAPL", market.TimeframeDaily, fetch, true); err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("forceRefresh must bypass the freshness check, fetch ran %d times", *calls)
	}
}

func TestCorruptBarCacheTreatedAsMiss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := os.WriteFile(c.barFile("AAPL", market.TimeframeDaily), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("seed corrupt cache: %v", err)
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fetch, calls := countingFetcher(dailyBars(start, 3, 10))
	bars, err := c.GetOrFetchBars(ctx, "AAPL", market.TimeframeDaily, fetch, false)
	if err != nil {
		t.Fatalf("GetOrFetchBars: %v", err)
	}
	if *calls != 1 || len(bars) != 3 {
		t.Fatalf("corrupt cache must fall through to the fetch, calls=%d bars=%d", *calls, len(bars))
	}
}

func TestZoneReplacementAndVerbatimRecords(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	raw := json.RawMessage(`{"zone_id":"AAPL_zn_support_0_20260302","type":"support","low":180.2,"mid":181.0,"high":181.8,"strength":7.5,"components":["ema20","fib_618"],"component_weights":{"ema20":3.5,"fib_618":4.0}}`)
	zones, err := market.DecodeZones([]byte("[" + string(raw) + "]"))
	if err != nil {
		t.Fatalf("DecodeZones: %v", err)
	}

	fetch := func(ctx context.Context, symbol string) ([]market.Zone, error) {
		return zones, nil
	}

	got, err := c.GetOrFetchZones(ctx, "AAPL", fetch, false)
	if err != nil {
		t.Fatalf("GetOrFetchZones: %v", err)
	}
	if len(got) != 1 || got[0].ID != "AAPL_zn_support_0_20260302" {
		t.Fatalf("unexpected zones: %+v", got)
	}

	// The unknown fields must survive the round-trip untouched.
	cached, _, ok := c.loadZones("AAPL")
	if !ok {
		t.Fatal("expected a persisted zone snapshot")
	}
	var decoded map[string]any
	if err := json.Unmarshal(cached[0].Raw, &decoded); err != nil {
		t.Fatalf("unmarshal cached raw: %v", err)
	}
	if _, ok := decoded["component_weights"]; !ok {
		t.Fatal("opaque zone fields must be preserved verbatim")
	}

	// A later fetch fully replaces the snapshot.
	replacement := []market.Zone{{ID: "AAPL_zn_resistance_1_20260303"}}
	fetch2 := func(ctx context.Context, symbol string) ([]market.Zone, error) {
		return replacement, nil
	}
	got, err = c.GetOrFetchZones(ctx, "AAPL", fetch2, true)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(got) != 1 || got[0].ID != "AAPL_zn_resistance_1_20260303" {
		t.Fatalf("zones must be fully replaced, got %+v", got)
	}
	cached, _, _ = c.loadZones("AAPL")
	if len(cached) != 1 || cached[0].ID != "AAPL_zn_resistance_1_20260303" {
		t.Fatalf("persisted snapshot must be the replacement, got %+v", cached)
	}
}

func TestClearAndInfo(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, symbol := range []string{"AAPL", "TSLA"} {
		fetch, _ := countingFetcher(dailyBars(start, 5, 10))
		if _, err := c.GetOrFetchBars(ctx, symbol, market.TimeframeDaily, fetch, false); err != nil {
			t.Fatalf("seed %s: %v", symbol, err)
		}
	}
	zfetch := func(ctx context.Context, symbol string) ([]market.Zone, error) {
		return []market.Zone{{ID: "z1"}}, nil
	}
	if _, err := c.GetOrFetchZones(ctx, "AAPL", zfetch, false); err != nil {
		t.Fatalf("seed zones: %v", err)
	}

	info, err := c.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.BarFiles != 2 || info.ZoneFiles != 1 || info.TotalSizeBytes == 0 {
		t.Fatalf("unexpected info: %+v", info)
	}

	removed, err := c.Clear("AAPL", market.TimeframeDaily)
	if err != nil || removed != 1 {
		t.Fatalf("Clear(AAPL, daily): removed=%d err=%v", removed, err)
	}

	removed, err = c.Clear("", "")
	if err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected remaining 2 files removed, got %d", removed)
	}

	info, err = c.Info()
	if err != nil {
		t.Fatalf("Info after clear: %v", err)
	}
	if info.BarFiles != 0 || info.ZoneFiles != 0 {
		t.Fatalf("cache must be empty after Clear, got %+v", info)
	}
}
