// Package indicators computes technical indicators over a chronological price series.
//
// Every function is pure. When there is not enough history to compute a value,
// a neutral default is returned instead of an error so that signal generation
// stays well defined during warm-up.
package indicators

import (
	"math"

	"github.com/gregtusar/papertrader/pkg/models"
)

const (
	DefaultRSIPeriod = 14

	oversoldLevel         = 30
	strongOversoldLevel   = 20
	overboughtLevel       = 70
	strongOverboughtLevel = 80

	// used as the relative strength when there were no losses in the window
	noLossRS = 100
)

// RSI calculates the relative strength index with the default period.
func RSI(prices []float64) models.RSIResult {
	return CalculateRSI(prices, DefaultRSIPeriod)
}

// CalculateRSI calculates the relative strength index using Wilder smoothing.
// It needs period+1 prices; with fewer it returns 50/NEUTRAL/WEAK.
func CalculateRSI(prices []float64, period int) models.RSIResult {
	if period <= 0 || len(prices) < period+1 {
		return neutralRSI()
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += math.Abs(change)
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = math.Abs(change)
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	rs := float64(noLossRS)
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	rsi := 100 - 100/(1+rs)

	return classifyRSI(rsi)
}

func classifyRSI(value float64) models.RSIResult {
	result := models.RSIResult{Value: value}
	switch {
	case value < oversoldLevel:
		result.Signal = models.RSISignalOversold
		result.Strength = models.StrengthModerate
		if value < strongOversoldLevel {
			result.Strength = models.StrengthStrong
		}
	case value > overboughtLevel:
		result.Signal = models.RSISignalOverbought
		result.Strength = models.StrengthModerate
		if value > strongOverboughtLevel {
			result.Strength = models.StrengthStrong
		}
	default:
		result.Signal = models.RSISignalNeutral
		result.Strength = models.StrengthWeak
	}
	return result
}

func neutralRSI() models.RSIResult {
	return models.RSIResult{
		Value:    50,
		Signal:   models.RSISignalNeutral,
		Strength: models.StrengthWeak,
	}
}
