package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures an emitted alert for auditing.
type AlertRecord struct {
	ID            int64
	IndicatorID   string
	IndicatorName string
	PointDate     string
	ScorePct      decimal.Decimal
	ThresholdPct  decimal.Decimal
	Direction     string
	Title         string
	Message       string
	CreatedAt     time.Time
}
