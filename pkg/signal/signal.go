// Package signal turns indicator readings into a directional trading signal.
package signal

import (
	"fmt"
	"math"

	"github.com/gregtusar/papertrader/pkg/models"
)

const (
	strongScore = 3.0
	weakScore   = 1.0

	holdConfidence       = 50.0
	maxConfidence        = 95.0
	strongBaseConfidence = 70.0
	weakBaseConfidence   = 60.0
	confidencePerPoint   = 5.0
)

// Generate scores the RSI and MACD readings and maps the score to an action
// and a confidence. It has no hidden state: equal inputs give equal outputs.
func Generate(rsi models.RSIResult, macd models.MACDResult) models.TradingSignal {
	var score float64
	reasons := make([]string, 0, 3)

	switch rsi.Signal {
	case models.RSISignalOversold:
		score += rsiWeight(rsi.Strength)
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.2f)", rsi.Value))
	case models.RSISignalOverbought:
		score -= rsiWeight(rsi.Strength)
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.2f)", rsi.Value))
	}

	switch macd.Crossover {
	case models.CrossoverBullish:
		score += 2
		reasons = append(reasons, "MACD bullish crossover")
	case models.CrossoverBearish:
		score -= 2
		reasons = append(reasons, "MACD bearish crossover")
	}

	if macd.Histogram > 0 {
		score += 0.5
		reasons = append(reasons, "MACD histogram positive")
	} else {
		score -= 0.5
		reasons = append(reasons, "MACD histogram negative")
	}

	action, confidence := classify(score)

	return models.TradingSignal{
		Action:     action,
		Confidence: confidence,
		Reasons:    reasons,
	}
}

func rsiWeight(s models.Strength) float64 {
	if s == models.StrengthStrong {
		return 2
	}
	return 1
}

func classify(score float64) (models.Action, float64) {
	magnitude := math.Abs(score)
	switch {
	case score >= strongScore:
		return models.ActionStrongBuy, math.Min(maxConfidence, strongBaseConfidence+confidencePerPoint*magnitude)
	case score >= weakScore:
		return models.ActionBuy, weakBaseConfidence + confidencePerPoint*magnitude
	case score <= -strongScore:
		return models.ActionStrongSell, math.Min(maxConfidence, strongBaseConfidence+confidencePerPoint*magnitude)
	case score <= -weakScore:
		return models.ActionSell, weakBaseConfidence + confidencePerPoint*magnitude
	default:
		return models.ActionHold, holdConfidence
	}
}
