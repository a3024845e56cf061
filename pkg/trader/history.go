package trader

import (
	"math"

	"github.com/gregtusar/papertrader/pkg/models"
)

// ComputeHistory derives ledger statistics from trades. Averages with no
// contributing trades are 0, and LargestWin/LargestLoss are 0 when there are
// no wins or losses respectively.
func ComputeHistory(trades []models.Trade) models.TradeHistory {
	h := models.TradeHistory{
		Trades:      trades,
		TotalTrades: len(trades),
	}

	var wins, losses int
	for _, t := range trades {
		switch t.Status {
		case models.TradeStatusFailed:
			h.FailedTrades++
			continue
		case models.TradeStatusExecuted:
		default:
			continue
		}

		h.SuccessfulTrades++
		h.TotalVolume += t.InputAmount

		if t.Profit == nil {
			continue
		}
		p := *t.Profit
		switch {
		case p > 0:
			wins++
			h.TotalProfit += p
			h.LargestWin = math.Max(h.LargestWin, p)
		case p < 0:
			losses++
			h.TotalLoss += -p
			h.LargestLoss = math.Min(h.LargestLoss, p)
		}
	}

	h.NetPnL = h.TotalProfit - h.TotalLoss
	if h.SuccessfulTrades > 0 {
		h.WinRate = float64(wins) / float64(h.SuccessfulTrades)
	}
	if wins > 0 {
		h.AverageProfit = h.TotalProfit / float64(wins)
	}
	if losses > 0 {
		h.AverageLoss = h.TotalLoss / float64(losses)
	}

	return h
}
