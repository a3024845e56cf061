package trader

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gregtusar/papertrader/pkg/models"
	"github.com/gregtusar/papertrader/pkg/safety"
)

var (
	ErrUnsafeQuote          = errors.New("trade failed safety checks")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrPositionNotFound     = errors.New("position not found")
	ErrInsufficientPosition = errors.New("insufficient position size")
	ErrPositionLimit        = errors.New("position size limit exceeded")
	ErrDrawdownHalt         = errors.New("trading halted by max drawdown")
	ErrInvalidPrice         = errors.New("invalid price")
)

type Config struct {
	StartingBalance float64 `mapstructure:"starting_balance" json:"starting_balance"`
	BaseCurrency    string  `mapstructure:"base_currency" json:"base_currency"`

	// Max share of total value a single position may reach, in percent. 0 disables.
	MaxPositionPercent float64 `mapstructure:"max_position_percent" json:"max_position_percent"`

	// Buys are refused once total P&L is at or below -MaxDrawdownPercent. 0 disables.
	MaxDrawdownPercent float64 `mapstructure:"max_drawdown_percent" json:"max_drawdown_percent"`
}

// PaperTrader owns a simulated account: cash, positions and an append-only
// trade ledger. Only one goroutine should mutate a PaperTrader at a time;
// snapshots may be read concurrently.
type PaperTrader struct {
	config    Config
	checker   *safety.Checker
	portfolio models.Portfolio
	trades    []models.Trade
	logger    *logrus.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

func NewPaperTrader(config Config, checker *safety.Checker, logger *logrus.Logger) *PaperTrader {
	pt := &PaperTrader{
		config:  config,
		checker: checker,
		portfolio: models.Portfolio{
			TotalValue:      config.StartingBalance,
			Cash:            config.StartingBalance,
			Positions:       make(map[string]*models.Position),
			StartingBalance: config.StartingBalance,
		},
		logger: logger,
		now:    time.Now,
	}

	pt.logger.WithFields(logrus.Fields{
		"starting_balance": config.StartingBalance,
		"base_currency":    config.BaseCurrency,
	}).Info("Paper trader initialized")

	return pt
}

// ExecuteTrade simulates swapping the quote's input (cash) for its output
// token. Every gate that fails returns a failed result without touching state.
func (pt *PaperTrader) ExecuteTrade(quote *models.Quote, inputDecimals, outputDecimals int32, inputSymbol, outputSymbol string) models.TradeResult {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	safetyResult := pt.checker.CheckQuote(quote, inputDecimals, outputDecimals)
	if !safetyResult.Safe {
		pt.logger.WithFields(logrus.Fields{
			"input":  inputSymbol,
			"output": outputSymbol,
		}).Warn("Trade rejected by safety checks")
		return pt.fail("Trade failed safety checks", ErrUnsafeQuote)
	}

	inputAmount := quote.InputAmount(inputDecimals)
	outputAmount := quote.OutputAmount(outputDecimals)
	price := quote.ExecutionPrice(inputDecimals, outputDecimals)
	priceImpact := quote.PriceImpactPercent()

	if inputAmount > pt.portfolio.Cash {
		pt.logger.WithFields(logrus.Fields{
			"need": inputAmount,
			"have": pt.portfolio.Cash,
		}).Warn("Insufficient balance")
		return pt.fail("Insufficient balance", ErrInsufficientBalance)
	}

	if outputAmount <= 0 || price <= 0 {
		return pt.fail("Quote has no output", fmt.Errorf("%w: output %v", ErrInvalidPrice, outputAmount))
	}

	if err := pt.checkLimits(outputSymbol, inputAmount); err != nil {
		pt.logger.WithError(err).WithField("symbol", outputSymbol).Warn("Trade rejected by risk limits")
		return pt.fail(err.Error(), err)
	}

	trade := models.Trade{
		ID:           pt.newTradeID(),
		Timestamp:    pt.now(),
		Type:         models.TradeTypeSwap,
		InputToken:   quote.InputMint,
		OutputToken:  quote.OutputMint,
		InputAmount:  inputAmount,
		OutputAmount: outputAmount,
		Price:        price,
		PriceImpact:  priceImpact,
		Slippage:     float64(quote.SlippageBps) / 100,
		Routes:       len(quote.RoutePlan),
		Status:       models.TradeStatusExecuted,
	}

	pt.portfolio.Cash -= inputAmount

	if pos, ok := pt.portfolio.Positions[outputSymbol]; ok {
		pos.Amount += outputAmount
		pos.TotalCost += inputAmount
		pos.AveragePrice = pos.TotalCost / pos.Amount
		pos.Revalue(price)
	} else {
		pos := &models.Position{
			Token:        quote.OutputMint,
			Symbol:       outputSymbol,
			Amount:       outputAmount,
			AveragePrice: price,
			TotalCost:    inputAmount,
		}
		pos.Revalue(price)
		pt.portfolio.Positions[outputSymbol] = pos
	}

	pt.recompute()
	pt.trades = append(pt.trades, trade)

	pt.logger.WithFields(logrus.Fields{
		"trade_id":        trade.ID,
		"input_amount":    inputAmount,
		"input_symbol":    inputSymbol,
		"output_amount":   outputAmount,
		"output_symbol":   outputSymbol,
		"price":           price,
		"portfolio_value": pt.portfolio.TotalValue,
	}).Info("Trade executed")

	return pt.succeed(trade)
}

// ClosePosition sells amount of symbol back to the base currency at
// currentPrice. A non-positive amount closes the whole position.
func (pt *PaperTrader) ClosePosition(symbol string, currentPrice, amount float64) models.TradeResult {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pos, ok := pt.portfolio.Positions[symbol]
	if !ok {
		return pt.fail(fmt.Sprintf("No position found for %s", symbol), fmt.Errorf("%w: %s", ErrPositionNotFound, symbol))
	}

	closeAmount := amount
	if closeAmount <= 0 {
		closeAmount = pos.Amount
	}
	if closeAmount > pos.Amount {
		return pt.fail("Insufficient position size", fmt.Errorf("%w: have %v, want %v", ErrInsufficientPosition, pos.Amount, closeAmount))
	}
	if currentPrice < 0 {
		return pt.fail("Invalid price", fmt.Errorf("%w: %v", ErrInvalidPrice, currentPrice))
	}

	proceeds := closeAmount * currentPrice
	costBasis := pos.TotalCost / pos.Amount * closeAmount
	profit := proceeds - costBasis
	profitPercent := 0.0
	if costBasis != 0 {
		profitPercent = profit / costBasis * 100
	}

	trade := models.Trade{
		ID:            pt.newTradeID(),
		Timestamp:     pt.now(),
		Type:          models.TradeTypeSell,
		InputToken:    pos.Token,
		OutputToken:   pt.config.BaseCurrency,
		InputAmount:   closeAmount,
		OutputAmount:  proceeds,
		Price:         currentPrice,
		Status:        models.TradeStatusExecuted,
		Profit:        &profit,
		ProfitPercent: &profitPercent,
	}

	pt.portfolio.Cash += proceeds

	if closeAmount == pos.Amount {
		delete(pt.portfolio.Positions, symbol)
	} else {
		pos.Amount -= closeAmount
		pos.TotalCost -= costBasis
		pos.Revalue(currentPrice)
	}

	pt.recompute()
	pt.trades = append(pt.trades, trade)

	pt.logger.WithFields(logrus.Fields{
		"trade_id":        trade.ID,
		"symbol":          symbol,
		"amount":          closeAmount,
		"proceeds":        proceeds,
		"profit":          profit,
		"profit_percent":  profitPercent,
		"portfolio_value": pt.portfolio.TotalValue,
	}).Info("Position closed")

	return pt.succeed(trade)
}

// MarkToMarket revalues the position in symbol at price.
func (pt *PaperTrader) MarkToMarket(symbol string, price float64) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pos, ok := pt.portfolio.Positions[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}
	if price < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}

	pos.Revalue(price)
	pt.recompute()
	return nil
}

// Portfolio returns a deep copy of the current portfolio.
func (pt *PaperTrader) Portfolio() models.Portfolio {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.portfolio.Clone()
}

// Position returns a copy of the position held in symbol.
func (pt *PaperTrader) Position(symbol string) (models.Position, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	pos, ok := pt.portfolio.Positions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// Trades returns a copy of the ledger, oldest first.
func (pt *PaperTrader) Trades() []models.Trade {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	out := make([]models.Trade, len(pt.trades))
	for i, t := range pt.trades {
		out[i] = t.Clone()
	}
	return out
}

func (pt *PaperTrader) TradeHistory() models.TradeHistory {
	return ComputeHistory(pt.Trades())
}

func (pt *PaperTrader) Config() Config {
	return pt.config
}

func (pt *PaperTrader) checkLimits(symbol string, inputAmount float64) error {
	if pt.config.MaxDrawdownPercent > 0 && pt.portfolio.TotalPnLPercent <= -pt.config.MaxDrawdownPercent {
		return fmt.Errorf("%w: pnl %.2f%%", ErrDrawdownHalt, pt.portfolio.TotalPnLPercent)
	}

	if pt.config.MaxPositionPercent > 0 && pt.portfolio.TotalValue > 0 {
		exposure := inputAmount
		if pos, ok := pt.portfolio.Positions[symbol]; ok {
			exposure += pos.CurrentValue
		}
		limit := pt.portfolio.TotalValue * pt.config.MaxPositionPercent / 100
		if exposure > limit {
			return fmt.Errorf("%w: %s exposure %.4f above %.4f", ErrPositionLimit, symbol, exposure, limit)
		}
	}
	return nil
}

// recompute restores the aggregate invariants after a mutation.
func (pt *PaperTrader) recompute() {
	var positionsValue float64
	for _, pos := range pt.portfolio.Positions {
		positionsValue += pos.CurrentValue
	}

	pt.portfolio.TotalValue = pt.portfolio.Cash + positionsValue
	pt.portfolio.TotalPnL = pt.portfolio.TotalValue - pt.portfolio.StartingBalance
	pt.portfolio.TotalPnLPercent = 0
	if pt.portfolio.StartingBalance != 0 {
		pt.portfolio.TotalPnLPercent = pt.portfolio.TotalPnL / pt.portfolio.StartingBalance * 100
	}
}

func (pt *PaperTrader) fail(msg string, err error) models.TradeResult {
	return models.TradeResult{
		Success:   false,
		Error:     msg,
		Err:       err,
		Portfolio: pt.portfolio.Clone(),
	}
}

func (pt *PaperTrader) succeed(trade models.Trade) models.TradeResult {
	cp := trade.Clone()
	return models.TradeResult{
		Success:   true,
		Trade:     &cp,
		Portfolio: pt.portfolio.Clone(),
	}
}

func (pt *PaperTrader) newTradeID() string {
	return "trade-" + uuid.NewString()
}
