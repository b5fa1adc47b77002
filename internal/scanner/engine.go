// Package scanner drives one scan pass over the symbol universe: warm the
// bar cache, pull the current zone snapshot, flag zones the latest price is
// touching, and gate every candidate through the cooldown store before
// anything is dispatched. Zone construction and pattern detection live in
// the external zone-builder service; the engine only checks proximity.
package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"swing-alerts/internal/alerting"
	"swing-alerts/internal/cache"
	"swing-alerts/internal/config"
	"swing-alerts/internal/dedup"
	"swing-alerts/internal/earnings"
	"swing-alerts/internal/fetcher"
	"swing-alerts/internal/market"
	"swing-alerts/internal/storage"
)

// Engine evaluates symbols against their zone snapshots.
type Engine struct {
	cache    *cache.Cache
	bars     fetcher.BarFetcher
	zones    fetcher.ZoneFetcher
	dedup    *dedup.Store
	blackout *earnings.Filter
	notifier alerting.Notifier
	audit    storage.AlertStore
	logger   zerolog.Logger

	proximity decimal.Decimal
	channels  []string
	alertsOn  bool

	now func() time.Time
}

// Result summarises one symbol's scan.
type Result struct {
	Symbol     string
	Blocked    bool
	Candidates int
	Dispatched int
	Suppressed int
}

// New constructs the scan engine. The blackout filter, notifier, and audit
// store may each be nil, disabling that concern.
func New(cfg *config.Config, dataCache *cache.Cache, bars fetcher.BarFetcher, zones fetcher.ZoneFetcher, cooldowns *dedup.Store, blackout *earnings.Filter, notifier alerting.Notifier, audit storage.AlertStore, logger zerolog.Logger) *Engine {
	return &Engine{
		cache:     dataCache,
		bars:      bars,
		zones:     zones,
		dedup:     cooldowns,
		blackout:  blackout,
		notifier:  notifier,
		audit:     audit,
		logger:    logger.With().Str("component", "scanner").Logger(),
		proximity: decimal.NewFromFloat(cfg.Scan.ProximityPct),
		channels:  cfg.Alerting.Channels,
		alertsOn:  cfg.Alerting.Enabled,
		now:       time.Now,
	}
}

// ScanAll runs ScanSymbol over the universe, continuing past per-symbol
// failures so one bad symbol cannot stall the pass.
func (e *Engine) ScanAll(ctx context.Context, symbols []string, forceRefresh bool) []Result {
	results := make([]Result, 0, len(symbols))
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		result, err := e.ScanSymbol(ctx, symbol, forceRefresh)
		if err != nil {
			e.logger.Error().Err(err).Str("symbol", symbol).Msg("scan failed")
			continue
		}
		results = append(results, result)
	}
	return results
}

// ScanSymbol evaluates a single symbol and dispatches any allowed alerts.
func (e *Engine) ScanSymbol(ctx context.Context, symbol string, forceRefresh bool) (Result, error) {
	result := Result{Symbol: symbol}

	if e.blackout != nil && e.blackout.ShouldBlock(ctx, symbol) {
		e.logger.Info().Str("symbol", symbol).Msg("earnings blackout; skipping symbol")
		result.Blocked = true
		return result, nil
	}

	// Keep the daily series warm; indicators downstream of the zone
	// builder read it out of the same cache directory.
	if _, err := e.cache.GetOrFetchBars(ctx, symbol, market.TimeframeDaily, e.bars.FetchDaily, forceRefresh); err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("daily refresh failed")
	}

	hourly, err := e.cache.GetOrFetchBars(ctx, symbol, market.TimeframeHourly, e.bars.FetchHourly, forceRefresh)
	if err != nil {
		return result, err
	}
	latest, ok := hourly.Latest()
	if !ok {
		e.logger.Info().Str("symbol", symbol).Msg("no hourly bars; skipping symbol")
		return result, nil
	}

	zones, err := e.cache.GetOrFetchZones(ctx, symbol, e.zones.FetchZones, forceRefresh)
	if err != nil {
		return result, err
	}

	for _, zone := range zones {
		if zone.ID == "" || !e.zoneTouched(latest.Close, zone) {
			continue
		}
		result.Candidates++

		if !e.dedup.CanAlert(symbol, zone.ID) {
			result.Suppressed++
			e.logger.Debug().Str("symbol", symbol).Str("zone_id", zone.ID).Msg("cooldown active; alert suppressed")
			continue
		}

		e.dispatch(ctx, symbol, zone, latest.Close)
		result.Dispatched++
	}

	e.logger.Info().Str("symbol", symbol).
		Int("candidates", result.Candidates).
		Int("dispatched", result.Dispatched).
		Int("suppressed", result.Suppressed).
		Msg("symbol scanned")
	return result, nil
}

// zoneTouched reports whether price sits inside the zone range widened by
// the proximity percentage on both sides.
func (e *Engine) zoneTouched(price decimal.Decimal, zone market.Zone) bool {
	low, high := zone.Low, zone.High
	if low.IsZero() && high.IsZero() {
		low, high = zone.Mid, zone.Mid
	}
	if low.IsZero() && high.IsZero() {
		return false
	}

	margin := e.proximity.Div(decimal.NewFromInt(100))
	lower := low.Mul(decimal.NewFromInt(1).Sub(margin))
	upper := high.Mul(decimal.NewFromInt(1).Add(margin))
	return price.GreaterThanOrEqual(lower) && price.LessThanOrEqual(upper)
}

func (e *Engine) dispatch(ctx context.Context, symbol string, zone market.Zone, price decimal.Decimal) {
	now := e.now().UTC()

	if e.alertsOn && e.notifier != nil {
		note := alerting.Notification{
			Symbol:   symbol,
			ZoneID:   zone.ID,
			ZoneType: zone.Type,
			Price:    price,
			ZoneLow:  zone.Low,
			ZoneHigh: zone.High,
			Strength: zone.Strength,
			At:       now,
			Channels: e.channels,
		}
		if err := e.notifier.Notify(ctx, note); err != nil {
			e.logger.Error().Err(err).Str("symbol", symbol).Str("zone_id", zone.ID).Msg("failed to dispatch alert")
		}
	}

	// Record the cooldown even when dispatch failed: a flapping notifier
	// must not turn into an alert storm after it recovers.
	if err := e.dedup.RecordAlert(symbol, zone.ID); err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Str("zone_id", zone.ID).Msg("failed to persist cooldown state")
	}

	if e.audit != nil {
		record := storage.AlertRecord{
			AlertedAt: now,
			Symbol:    symbol,
			ZoneID:    zone.ID,
			ZoneType:  zone.Type,
			Price:     price,
			Channels:  e.channels,
		}
		if _, err := e.audit.InsertAlert(ctx, record); err != nil {
			e.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to persist alert record")
		}
	}
}
