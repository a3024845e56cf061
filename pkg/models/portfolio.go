package models

import (
	"time"
)

type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
	TradeTypeSwap TradeType = "swap"
)

type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusExecuted TradeStatus = "executed"
	TradeStatusFailed   TradeStatus = "failed"
)

// Trade is an immutable ledger entry. Profit and ProfitPercent are only set
// on trades that close a position.
type Trade struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Type          TradeType   `json:"type"`
	InputToken    string      `json:"input_token"`
	OutputToken   string      `json:"output_token"`
	InputAmount   float64     `json:"input_amount"`
	OutputAmount  float64     `json:"output_amount"`
	Price         float64     `json:"price"`
	PriceImpact   float64     `json:"price_impact"`
	Slippage      float64     `json:"slippage"`
	Routes        int         `json:"routes"`
	Status        TradeStatus `json:"status"`
	Profit        *float64    `json:"profit,omitempty"`
	ProfitPercent *float64    `json:"profit_percent,omitempty"`
}

// Clone returns a copy that does not share the profit fields.
func (t Trade) Clone() Trade {
	if t.Profit != nil {
		v := *t.Profit
		t.Profit = &v
	}
	if t.ProfitPercent != nil {
		v := *t.ProfitPercent
		t.ProfitPercent = &v
	}
	return t
}

type Position struct {
	Token                string  `json:"token"`
	Symbol               string  `json:"symbol"`
	Amount               float64 `json:"amount"`
	AveragePrice         float64 `json:"average_price"`
	TotalCost            float64 `json:"total_cost"`
	CurrentValue         float64 `json:"current_value"`
	UnrealizedPnL        float64 `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64 `json:"unrealized_pnl_percent"`
}

// Revalue marks the position at price.
func (p *Position) Revalue(price float64) {
	p.CurrentValue = p.Amount * price
	p.UnrealizedPnL = p.CurrentValue - p.TotalCost
	p.UnrealizedPnLPercent = 0
	if p.TotalCost != 0 {
		p.UnrealizedPnLPercent = p.UnrealizedPnL / p.TotalCost * 100
	}
}

type Portfolio struct {
	TotalValue      float64              `json:"total_value"`
	Cash            float64              `json:"cash"`
	Positions       map[string]*Position `json:"positions"`
	TotalPnL        float64              `json:"total_pnl"`
	TotalPnLPercent float64              `json:"total_pnl_percent"`
	StartingBalance float64              `json:"starting_balance"`
}

// Clone returns a deep copy that shares no state with p.
func (p *Portfolio) Clone() Portfolio {
	out := *p
	out.Positions = make(map[string]*Position, len(p.Positions))
	for symbol, pos := range p.Positions {
		cp := *pos
		out.Positions[symbol] = &cp
	}
	return out
}

type TradeHistory struct {
	Trades           []Trade `json:"trades"`
	TotalTrades      int     `json:"total_trades"`
	SuccessfulTrades int     `json:"successful_trades"`
	FailedTrades     int     `json:"failed_trades"`
	TotalVolume      float64 `json:"total_volume"`
	TotalProfit      float64 `json:"total_profit"`
	TotalLoss        float64 `json:"total_loss"`
	NetPnL           float64 `json:"net_pnl"`
	WinRate          float64 `json:"win_rate"`
	AverageProfit    float64 `json:"average_profit"`
	AverageLoss      float64 `json:"average_loss"`
	LargestWin       float64 `json:"largest_win"`
	LargestLoss      float64 `json:"largest_loss"`
}

// TradeResult is the outcome of a portfolio mutation. Failures are normal
// results: Success is false, Error holds a display message and Err the cause.
type TradeResult struct {
	Success   bool      `json:"success"`
	Trade     *Trade    `json:"trade,omitempty"`
	Error     string    `json:"error,omitempty"`
	Err       error     `json:"-"`
	Portfolio Portfolio `json:"portfolio"`
}
