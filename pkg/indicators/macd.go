package indicators

import (
	"github.com/gregtusar/papertrader/pkg/models"
)

const (
	DefaultFastPeriod   = 12
	DefaultSlowPeriod   = 26
	DefaultSignalPeriod = 9
)

// CalculateEMA returns the exponential moving average series of prices. The
// first value is the simple mean of the first period prices, so the result
// has len(prices)-period+1 values. It returns nil when there is not enough data.
func CalculateEMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	k := 2 / float64(period+1)
	ema := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	ema = append(ema, sum/float64(period))

	for _, p := range prices[period:] {
		prev := ema[len(ema)-1]
		ema = append(ema, (p-prev)*k+prev)
	}
	return ema
}

// MACD calculates MACD with the standard 12/26/9 periods.
func MACD(prices []float64) models.MACDResult {
	return CalculateMACD(prices, DefaultFastPeriod, DefaultSlowPeriod, DefaultSignalPeriod)
}

// CalculateMACD computes the MACD line, its signal line and the histogram, and
// classifies the latest crossover. A zero NEUTRAL result is returned until
// both the slow EMA and the signal line are defined.
func CalculateMACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) models.MACDResult {
	if fastPeriod <= 0 || slowPeriod < fastPeriod || len(prices) < slowPeriod {
		return neutralMACD()
	}

	fast := CalculateEMA(prices, fastPeriod)
	slow := CalculateEMA(prices, slowPeriod)

	offset := slowPeriod - fastPeriod
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	signalLine := CalculateEMA(line, signalPeriod)
	if len(signalLine) == 0 {
		return neutralMACD()
	}

	macd := line[len(line)-1]
	signal := signalLine[len(signalLine)-1]

	result := models.MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
		Crossover: models.CrossoverNeutral,
	}

	if len(line) > 1 && len(signalLine) > 1 {
		prevMACD := line[len(line)-2]
		prevSignal := signalLine[len(signalLine)-2]

		switch {
		case prevMACD <= prevSignal && macd > signal:
			result.Crossover = models.CrossoverBullish
		case prevMACD >= prevSignal && macd < signal:
			result.Crossover = models.CrossoverBearish
		}
	}

	return result
}

func neutralMACD() models.MACDResult {
	return models.MACDResult{Crossover: models.CrossoverNeutral}
}
