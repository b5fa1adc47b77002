package fetcher

import (
	"context"
	"time"

	"swing-alerts/internal/market"
)

// BarFetcher retrieves OHLCV history from the market-data provider.
type BarFetcher interface {
	FetchDaily(ctx context.Context, symbol string) (market.Bars, error)
	FetchHourly(ctx context.Context, symbol string) (market.Bars, error)
}

// ZoneFetcher retrieves the current zone snapshot for a symbol from the
// zone-builder service.
type ZoneFetcher interface {
	FetchZones(ctx context.Context, symbol string) ([]market.Zone, error)
}

// EarningsFetcher retrieves the next scheduled earnings report date for a
// symbol. The second return is false when no upcoming report is known.
type EarningsFetcher interface {
	NextEarnings(ctx context.Context, symbol string) (time.Time, bool, error)
}
