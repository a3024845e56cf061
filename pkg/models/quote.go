package models

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuote = errors.New("invalid quote")

// Quote is a normalized swap quote in the Jupiter v6 shape. Amounts are raw
// integers in the token's smallest unit, encoded as strings.
type Quote struct {
	InputMint            string       `json:"inputMint"`
	InAmount             string       `json:"inAmount"`
	OutputMint           string       `json:"outputMint"`
	OutAmount            string       `json:"outAmount"`
	OtherAmountThreshold string       `json:"otherAmountThreshold"`
	SwapMode             string       `json:"swapMode"`
	SlippageBps          int          `json:"slippageBps"`
	PlatformFee          *PlatformFee `json:"platformFee"`
	PriceImpactPct       string       `json:"priceImpactPct"`
	RoutePlan            []RoutePlan  `json:"routePlan"`
	ContextSlot          int64        `json:"contextSlot,omitempty"`
	TimeTaken            float64      `json:"timeTaken,omitempty"`
}

type PlatformFee struct {
	Amount string `json:"amount"`
	FeeBps int    `json:"feeBps"`
}

type RoutePlan struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  float64  `json:"percent"`
}

type SwapInfo struct {
	AMMKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// RawInAmount returns the raw input amount, or zero when it does not parse.
func (q *Quote) RawInAmount() decimal.Decimal {
	return parseRaw(q.InAmount)
}

// RawOutAmount returns the raw output amount, or zero when it does not parse.
func (q *Quote) RawOutAmount() decimal.Decimal {
	return parseRaw(q.OutAmount)
}

// InputAmount converts the raw input amount to human units.
func (q *Quote) InputAmount(decimals int32) float64 {
	return q.RawInAmount().Shift(-decimals).InexactFloat64()
}

// OutputAmount converts the raw output amount to human units.
func (q *Quote) OutputAmount(decimals int32) float64 {
	return q.RawOutAmount().Shift(-decimals).InexactFloat64()
}

// Rate is the number of output units received per input unit.
func (q *Quote) Rate(inputDecimals, outputDecimals int32) float64 {
	in := q.InputAmount(inputDecimals)
	if in == 0 {
		return 0
	}
	return q.OutputAmount(outputDecimals) / in
}

// ExecutionPrice is the cost of one output unit in input units.
func (q *Quote) ExecutionPrice(inputDecimals, outputDecimals int32) float64 {
	out := q.OutputAmount(outputDecimals)
	if out == 0 {
		return 0
	}
	return q.InputAmount(inputDecimals) / out
}

// PriceImpactPercent returns the quoted price impact as a signed percentage.
func (q *Quote) PriceImpactPercent() float64 {
	v, err := strconv.ParseFloat(q.PriceImpactPct, 64)
	if err != nil {
		return 0
	}
	return v * 100
}

func (q *Quote) Validate() error {
	if err := ValidateMint(q.InputMint); err != nil {
		return fmt.Errorf("%w: input mint: %v", ErrInvalidQuote, err)
	}
	if err := ValidateMint(q.OutputMint); err != nil {
		return fmt.Errorf("%w: output mint: %v", ErrInvalidQuote, err)
	}
	if _, err := decimal.NewFromString(q.InAmount); err != nil {
		return fmt.Errorf("%w: in amount %q", ErrInvalidQuote, q.InAmount)
	}
	if _, err := decimal.NewFromString(q.OutAmount); err != nil {
		return fmt.Errorf("%w: out amount %q", ErrInvalidQuote, q.OutAmount)
	}
	if q.PriceImpactPct != "" {
		if _, err := strconv.ParseFloat(q.PriceImpactPct, 64); err != nil {
			return fmt.Errorf("%w: price impact %q", ErrInvalidQuote, q.PriceImpactPct)
		}
	}
	return nil
}

// ValidateMint checks that s is a base58 encoded 32 byte public key.
func ValidateMint(s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode %q: %w", s, err)
	}
	if len(b) != 32 {
		return fmt.Errorf("mint %q has %d bytes, want 32", s, len(b))
	}
	return nil
}

func parseRaw(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// QuoteRequest asks a quote source for a swap of Amount raw input units.
type QuoteRequest struct {
	InputMint        string
	OutputMint       string
	Amount           int64
	SlippageBps      int
	OnlyDirectRoutes bool
}

// RawAmount converts a human amount to raw units, truncating any remainder.
func RawAmount(amount float64, decimals int32) int64 {
	return decimal.NewFromFloat(amount).Shift(decimals).IntPart()
}
