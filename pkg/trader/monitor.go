package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gregtusar/papertrader/pkg/indicators"
	"github.com/gregtusar/papertrader/pkg/metrics"
	"github.com/gregtusar/papertrader/pkg/models"
	"github.com/gregtusar/papertrader/pkg/signal"
)

// QuoteSource fetches swap quotes.
type QuoteSource interface {
	GetQuote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error)
}

// AnalysisHandler receives every analysis the monitor produces.
type AnalysisHandler func(models.Analysis)

type MonitorConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	WindowSize int           `mapstructure:"window_size"`
	MinHistory int           `mapstructure:"min_history"`

	// samples back used for the reported price change
	ChangeLookback int `mapstructure:"change_lookback"`

	TradingEnabled    bool    `mapstructure:"trading_enabled"`
	MinConfidence     float64 `mapstructure:"min_confidence"`
	MinTradeSize      float64 `mapstructure:"min_trade_size"`
	MaxTradeSize      float64 `mapstructure:"max_trade_size"`
	MaxDailyTrades    int     `mapstructure:"max_daily_trades"`
	StopLossPercent   float64 `mapstructure:"stop_loss_percent"`
	TakeProfitPercent float64 `mapstructure:"take_profit_percent"`
	SlippageBps       int     `mapstructure:"slippage_bps"`
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:          60 * time.Second,
		WindowSize:        indicators.DefaultWindowCapacity,
		MinHistory:        indicators.DefaultSlowPeriod,
		ChangeLookback:    24,
		MinConfidence:     70,
		MinTradeSize:      0.01,
		MaxTradeSize:      1.0,
		MaxDailyTrades:    10,
		StopLossPercent:   3,
		TakeProfitPercent: 5,
		SlippageBps:       50,
	}
}

// Monitor polls quotes for each pair, keeps a price window per pair, derives
// signals and, when trading is enabled, drives the paper trader. It is the
// single writer of its PaperTrader.
type Monitor struct {
	config   MonitorConfig
	source   QuoteSource
	paper    *PaperTrader
	pairs    []models.Pair
	windows  map[string]*indicators.PriceWindow
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	handlers []AnalysisHandler
	latest   map[string]models.Analysis
	mu       sync.RWMutex

	tradeDay    string
	dailyTrades int

	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewMonitor(config MonitorConfig, source QuoteSource, paper *PaperTrader, pairs []models.Pair, m *metrics.Metrics, logger *logrus.Logger) *Monitor {
	windows := make(map[string]*indicators.PriceWindow, len(pairs))
	for _, p := range pairs {
		windows[p.Name] = indicators.NewPriceWindow(config.WindowSize)
	}

	return &Monitor{
		config:  config,
		source:  source,
		paper:   paper,
		pairs:   pairs,
		windows: windows,
		metrics: m,
		logger:  logger,
		latest:  make(map[string]models.Analysis),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Subscribe registers h for every future analysis. Handlers run on the
// monitor goroutine and must not block.
func (m *Monitor) Subscribe(h AnalysisHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

func (m *Monitor) Start(ctx context.Context) error {
	if len(m.pairs) == 0 {
		return fmt.Errorf("no trading pairs configured")
	}
	if m.config.Interval <= 0 {
		return fmt.Errorf("invalid monitor interval %v", m.config.Interval)
	}

	m.logger.WithFields(logrus.Fields{
		"pairs":    len(m.pairs),
		"interval": m.config.Interval,
		"trading":  m.config.TradingEnabled,
	}).Info("Starting monitor")

	go m.run(ctx)
	return nil
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping monitor")
		close(m.stopCh)
	})
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick evaluates every pair once. Failures are logged and do not stop the
// remaining pairs.
func (m *Monitor) Tick(ctx context.Context) {
	for _, pair := range m.pairs {
		if err := m.evaluatePair(ctx, pair); err != nil {
			m.logger.WithError(err).WithField("pair", pair.Name).Error("Failed to analyze pair")
		}
	}
}

// Latest returns the most recent analysis of every pair.
func (m *Monitor) Latest() []models.Analysis {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Analysis, 0, len(m.pairs))
	for _, p := range m.pairs {
		if a, ok := m.latest[p.Name]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (m *Monitor) evaluatePair(ctx context.Context, pair models.Pair) error {
	probe := m.config.MinTradeSize
	quote, err := m.fetchQuote(ctx, pair, probe)
	if err != nil {
		return err
	}

	price := quote.ExecutionPrice(pair.InputDecimals, pair.OutputDecimals)
	if price <= 0 {
		return fmt.Errorf("%w: quote for %s has no output", ErrInvalidPrice, pair.Name)
	}

	now := m.now()
	window := m.windows[pair.Name]
	window.Add(models.PricePoint{Timestamp: now.UnixMilli(), Price: price})

	if _, ok := m.paper.Position(pair.OutputSymbol); ok {
		if err := m.paper.MarkToMarket(pair.OutputSymbol, price); err != nil {
			return err
		}
		m.metrics.ObservePortfolio(m.paper.Portfolio())
		if m.config.TradingEnabled && m.checkExits(pair, price) {
			return nil
		}
	}

	if !window.Ready(m.config.MinHistory) {
		m.logger.WithFields(logrus.Fields{
			"pair":    pair.Name,
			"samples": window.Len(),
			"needed":  m.config.MinHistory,
		}).Info("Collecting price history")
		return nil
	}

	analysis := m.analyze(pair, window, now)
	m.publish(analysis)

	if m.config.TradingEnabled {
		m.act(ctx, pair, analysis)
	}
	return nil
}

func (m *Monitor) analyze(pair models.Pair, window *indicators.PriceWindow, now time.Time) models.Analysis {
	prices := window.Prices()
	rsi := indicators.RSI(prices)
	macd := indicators.MACD(prices)
	sig := signal.Generate(rsi, macd)

	last, _ := window.Last()
	ref, _ := window.Back(m.config.ChangeLookback)
	change := 0.0
	if ref.Price != 0 {
		change = (last.Price - ref.Price) / ref.Price * 100
	}

	return models.Analysis{
		Pair:           pair.Name,
		Timestamp:      now,
		Price:          last.Price,
		PriceChange:    change,
		RSI:            rsi,
		MACD:           macd,
		Signal:         sig,
		Recommendation: signal.Recommend(last.Price, sig),
	}
}

func (m *Monitor) publish(a models.Analysis) {
	m.mu.Lock()
	m.latest[a.Pair] = a
	handlers := make([]AnalysisHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	m.metrics.Signals.WithLabelValues(a.Pair, string(a.Signal.Action)).Inc()

	entry := m.logger.WithFields(logrus.Fields{
		"pair":       a.Pair,
		"price":      a.Price,
		"change":     a.PriceChange,
		"rsi":        a.RSI.Value,
		"histogram":  a.MACD.Histogram,
		"crossover":  a.MACD.Crossover,
		"action":     a.Signal.Action,
		"confidence": a.Signal.Confidence,
		"reasons":    a.Signal.Reasons,
	})
	if a.Signal.Action == models.ActionStrongBuy || a.Signal.Action == models.ActionStrongSell {
		entry.Warn("Strong signal")
	} else {
		entry.Info("Analysis updated")
	}

	for _, h := range handlers {
		h(a)
	}
}

func (m *Monitor) act(ctx context.Context, pair models.Pair, a models.Analysis) {
	sig := a.Signal
	if sig.Confidence < m.config.MinConfidence {
		m.logger.WithFields(logrus.Fields{
			"pair":       pair.Name,
			"confidence": sig.Confidence,
			"min":        m.config.MinConfidence,
		}).Debug("Confidence too low to trade")
		return
	}

	switch {
	case sig.Action.IsBuy():
		m.buy(ctx, pair, sig)
	case sig.Action.IsSell():
		if _, ok := m.paper.Position(pair.OutputSymbol); !ok {
			m.logger.WithField("pair", pair.Name).Debug("Sell signal with no open position")
			return
		}
		m.closePosition(pair, a.Price, "signal")
	}
}

func (m *Monitor) buy(ctx context.Context, pair models.Pair, sig models.TradingSignal) {
	if !m.allowTrade() {
		m.logger.WithFields(logrus.Fields{
			"pair":  pair.Name,
			"limit": m.config.MaxDailyTrades,
		}).Warn("Daily trade limit reached")
		return
	}

	size := signal.PositionSize(sig.Confidence, m.config.MinTradeSize, m.config.MaxTradeSize)
	quote, err := m.fetchQuote(ctx, pair, size)
	if err != nil {
		m.logger.WithError(err).WithField("pair", pair.Name).Error("Failed to fetch sized quote")
		return
	}

	result := m.paper.ExecuteTrade(quote, pair.InputDecimals, pair.OutputDecimals, pair.InputSymbol, pair.OutputSymbol)
	m.metrics.ObserveTrade(result, rejectReason(result.Err))
	if !result.Success {
		m.logger.WithField("pair", pair.Name).WithError(result.Err).Warn("Buy not executed")
		return
	}
	m.dailyTrades++
}

// checkExits closes the pair's position when its stop loss or take profit is
// hit and reports whether it did.
func (m *Monitor) checkExits(pair models.Pair, price float64) bool {
	pos, ok := m.paper.Position(pair.OutputSymbol)
	if !ok || pos.AveragePrice <= 0 {
		return false
	}

	switch {
	case m.config.StopLossPercent > 0 && price <= pos.AveragePrice*(1-m.config.StopLossPercent/100):
		m.closePosition(pair, price, "stop_loss")
		return true
	case m.config.TakeProfitPercent > 0 && price >= pos.AveragePrice*(1+m.config.TakeProfitPercent/100):
		m.closePosition(pair, price, "take_profit")
		return true
	}
	return false
}

func (m *Monitor) closePosition(pair models.Pair, price float64, reason string) {
	result := m.paper.ClosePosition(pair.OutputSymbol, price, 0)
	m.metrics.ObserveTrade(result, rejectReason(result.Err))
	if !result.Success {
		m.logger.WithField("pair", pair.Name).WithError(result.Err).Warn("Close not executed")
		return
	}
	m.logger.WithFields(logrus.Fields{
		"pair":   pair.Name,
		"reason": reason,
		"profit": *result.Trade.Profit,
	}).Info("Position exited")
}

func (m *Monitor) fetchQuote(ctx context.Context, pair models.Pair, amount float64) (*models.Quote, error) {
	req := models.QuoteRequest{
		InputMint:   pair.InputMint,
		OutputMint:  pair.OutputMint,
		Amount:      models.RawAmount(amount, pair.InputDecimals),
		SlippageBps: m.config.SlippageBps,
	}

	start := time.Now()
	quote, err := m.source.GetQuote(ctx, req)
	m.metrics.QuoteLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		m.metrics.QuoteErrors.WithLabelValues(pair.Name).Inc()
		return nil, fmt.Errorf("failed to get quote for %s: %w", pair.Name, err)
	}
	m.metrics.QuotesFetched.Inc()
	return quote, nil
}

func (m *Monitor) allowTrade() bool {
	day := m.now().UTC().Format("2006-01-02")
	if day != m.tradeDay {
		m.tradeDay = day
		m.dailyTrades = 0
	}
	return m.config.MaxDailyTrades <= 0 || m.dailyTrades < m.config.MaxDailyTrades
}

func rejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsafeQuote):
		return "unsafe_quote"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrPositionLimit):
		return "position_limit"
	case errors.Is(err, ErrDrawdownHalt):
		return "drawdown"
	case errors.Is(err, ErrPositionNotFound):
		return "position_not_found"
	case errors.Is(err, ErrInsufficientPosition):
		return "insufficient_position"
	default:
		return "other"
	}
}
