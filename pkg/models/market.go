package models

import (
	"time"
)

// PricePoint is a single observation in a price series. Timestamp is in milliseconds.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

type RSISignal string

const (
	RSISignalOversold   RSISignal = "OVERSOLD"
	RSISignalNeutral    RSISignal = "NEUTRAL"
	RSISignalOverbought RSISignal = "OVERBOUGHT"
)

type Strength string

const (
	StrengthStrong   Strength = "STRONG"
	StrengthModerate Strength = "MODERATE"
	StrengthWeak     Strength = "WEAK"
)

type RSIResult struct {
	Value    float64   `json:"value"`
	Signal   RSISignal `json:"signal"`
	Strength Strength  `json:"strength"`
}

type Crossover string

const (
	CrossoverBullish Crossover = "BULLISH"
	CrossoverBearish Crossover = "BEARISH"
	CrossoverNeutral Crossover = "NEUTRAL"
)

type MACDResult struct {
	MACD      float64   `json:"macd"`
	Signal    float64   `json:"signal"`
	Histogram float64   `json:"histogram"`
	Crossover Crossover `json:"crossover"`
}

type Action string

const (
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionBuy        Action = "BUY"
	ActionHold       Action = "HOLD"
	ActionSell       Action = "SELL"
	ActionStrongSell Action = "STRONG_SELL"
)

func (a Action) IsBuy() bool {
	return a == ActionBuy || a == ActionStrongBuy
}

func (a Action) IsSell() bool {
	return a == ActionSell || a == ActionStrongSell
}

type TradingSignal struct {
	Action     Action   `json:"action"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Recommendation carries entry and exit levels for a directional signal.
// HOLD recommendations only set Action.
type Recommendation struct {
	Action       Action  `json:"action"`
	EntryPrice   float64 `json:"entry_price,omitempty"`
	TargetPrice  float64 `json:"target_price,omitempty"`
	StopLoss     float64 `json:"stop_loss,omitempty"`
	PositionSize float64 `json:"position_size,omitempty"`
}

// Analysis is one monitor evaluation of a trading pair.
type Analysis struct {
	Pair           string         `json:"pair"`
	Timestamp      time.Time      `json:"timestamp"`
	Price          float64        `json:"price"`
	PriceChange    float64        `json:"price_change"`
	RSI            RSIResult      `json:"rsi"`
	MACD           MACDResult     `json:"macd"`
	Signal         TradingSignal  `json:"signal"`
	Recommendation Recommendation `json:"recommendation"`
}

// Pair describes a monitored swap route between the base currency and a token.
type Pair struct {
	Name           string `json:"name" mapstructure:"name"`
	InputMint      string `json:"input_mint" mapstructure:"input_mint"`
	OutputMint     string `json:"output_mint" mapstructure:"output_mint"`
	InputSymbol    string `json:"input_symbol" mapstructure:"input_symbol"`
	OutputSymbol   string `json:"output_symbol" mapstructure:"output_symbol"`
	InputDecimals  int32  `json:"input_decimals" mapstructure:"input_decimals"`
	OutputDecimals int32  `json:"output_decimals" mapstructure:"output_decimals"`
}
