package signal

import (
	"math"

	"github.com/gregtusar/papertrader/pkg/models"
)

const (
	targetPercent   = 0.05
	stopLossPercent = 0.03
)

// Recommend derives entry, target and stop levels for sig at price. Long
// entries target +5% with a 3% stop; short entries mirror that.
func Recommend(price float64, sig models.TradingSignal) models.Recommendation {
	rec := models.Recommendation{Action: sig.Action}

	switch {
	case sig.Action.IsBuy():
		rec.EntryPrice = price
		rec.TargetPrice = price * (1 + targetPercent)
		rec.StopLoss = price * (1 - stopLossPercent)
		rec.PositionSize = sig.Confidence / 100
	case sig.Action.IsSell():
		rec.EntryPrice = price
		rec.TargetPrice = price * (1 - targetPercent)
		rec.StopLoss = price * (1 + stopLossPercent)
		rec.PositionSize = sig.Confidence / 100
	default:
		rec.Action = models.ActionHold
	}

	return rec
}

// PositionSize scales a trade between min and max by confidence (0-100).
func PositionSize(confidence, min, max float64) float64 {
	size := min + (max-min)*confidence/100
	return math.Min(size, max)
}
