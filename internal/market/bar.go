package market

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe identifies the bar granularity of a series.
type Timeframe string

const (
	TimeframeDaily  Timeframe = "daily"
	TimeframeHourly Timeframe = "hourly"
)

// Valid reports whether the timeframe is one the pipeline understands.
func (tf Timeframe) Valid() bool {
	return tf == TimeframeDaily || tf == TimeframeHourly
}

// Bar is a single OHLCV observation.
type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Bars is an ordered series of bars, ascending by date.
type Bars []Bar

// SortByDate orders bars ascending by date in place.
func (b Bars) SortByDate() {
	sort.Slice(b, func(i, j int) bool {
		return b[i].Date.Before(b[j].Date)
	})
}

// Tail returns the most recent n bars. The receiver must already be sorted.
func (b Bars) Tail(n int) Bars {
	if n <= 0 || len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}

// Latest returns the most recent bar, or false when the series is empty.
func (b Bars) Latest() (Bar, bool) {
	if len(b) == 0 {
		return Bar{}, false
	}
	return b[len(b)-1], true
}
