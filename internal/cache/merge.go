package cache

import (
	"swing-alerts/internal/market"
)

// MergeBars combines previously cached bars with a newly fetched batch.
// Bars are deduplicated by date with the fresh value winning on collision,
// sorted ascending, and truncated to the most recent limit bars. The inputs
// are not modified.
func MergeBars(cached, fresh market.Bars, limit int) market.Bars {
	byDate := make(map[int64]market.Bar, len(cached)+len(fresh))
	for _, bar := range cached {
		byDate[bar.Date.UTC().Unix()] = bar
	}
	for _, bar := range fresh {
		byDate[bar.Date.UTC().Unix()] = bar
	}

	merged := make(market.Bars, 0, len(byDate))
	for _, bar := range byDate {
		merged = append(merged, bar)
	}
	merged.SortByDate()

	return merged.Tail(limit)
}
