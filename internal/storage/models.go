package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures a dispatched zone alert for auditing.
type AlertRecord struct {
	ID        int64
	AlertedAt time.Time
	Symbol    string
	ZoneID    string
	ZoneType  string
	Price     decimal.Decimal
	Channels  []string
	CreatedAt time.Time
}
