// Package safety validates swap quotes against configurable risk thresholds
// before they are allowed to reach the portfolio.
package safety

import (
	"fmt"
	"math"

	"github.com/gregtusar/papertrader/pkg/models"
)

// fragmentedRouteCount is the number of route splits above which liquidity is
// considered fragmented.
const fragmentedRouteCount = 5

type Config struct {
	MaxPriceImpactPercent  float64 `mapstructure:"max_price_impact_percent" json:"max_price_impact_percent"`
	MaxSlippageBps         int     `mapstructure:"max_slippage_bps" json:"max_slippage_bps"`
	MinRouteCount          int     `mapstructure:"min_route_count" json:"min_route_count"`
	MinOutputRatio         float64 `mapstructure:"min_output_ratio" json:"min_output_ratio"`
	WarnPriceImpactPercent float64 `mapstructure:"warn_price_impact_percent" json:"warn_price_impact_percent"`
	WarnSlippageBps        int     `mapstructure:"warn_slippage_bps" json:"warn_slippage_bps"`
}

func DefaultConfig() Config {
	return Config{
		MaxPriceImpactPercent:  2.0,
		MaxSlippageBps:         100,
		MinRouteCount:          1,
		MinOutputRatio:         0.90,
		WarnPriceImpactPercent: 1.0,
		WarnSlippageBps:        50,
	}
}

func (c Config) Validate() error {
	if c.MaxPriceImpactPercent <= 0 {
		return fmt.Errorf("max price impact must be positive, got %v", c.MaxPriceImpactPercent)
	}
	if c.WarnPriceImpactPercent > c.MaxPriceImpactPercent {
		return fmt.Errorf("warn price impact %v exceeds max %v", c.WarnPriceImpactPercent, c.MaxPriceImpactPercent)
	}
	if c.MaxSlippageBps < 0 || c.WarnSlippageBps < 0 {
		return fmt.Errorf("slippage thresholds must not be negative")
	}
	if c.WarnSlippageBps > c.MaxSlippageBps {
		return fmt.Errorf("warn slippage %d exceeds max %d", c.WarnSlippageBps, c.MaxSlippageBps)
	}
	if c.MinRouteCount < 0 {
		return fmt.Errorf("min route count must not be negative, got %d", c.MinRouteCount)
	}
	return nil
}

// Checker evaluates quotes against a fixed Config. It holds no other state
// and may be shared.
type Checker struct {
	config Config
}

func NewChecker(config Config) *Checker {
	return &Checker{config: config}
}

func (c *Checker) Config() Config {
	return c.config
}

// CheckQuote runs every check on q. The quote is safe unless a check fails
// with error severity; warnings never block.
func (c *Checker) CheckQuote(q *models.Quote, inputDecimals, outputDecimals int32) models.SafetyCheckResult {
	checks := models.SafetyChecks{
		PriceImpact:    c.checkPriceImpact(q),
		Slippage:       c.checkSlippage(q),
		RouteCount:     c.checkRouteCount(q),
		OutputAmount:   c.checkOutputAmount(q, inputDecimals, outputDecimals),
		LiquidityDepth: c.checkLiquidityDepth(q),
	}

	safe := true
	for _, nc := range checks.Named() {
		if nc.Check.Blocking() {
			safe = false
			break
		}
	}

	return models.SafetyCheckResult{Safe: safe, Checks: checks}
}

func (c *Checker) checkPriceImpact(q *models.Quote) models.SafetyCheck {
	impact := math.Abs(q.PriceImpactPercent())

	if impact > c.config.MaxPriceImpactPercent {
		return models.SafetyCheck{
			Passed:   false,
			Reason:   fmt.Sprintf("Price impact %.2f%% exceeds maximum %v%%", impact, c.config.MaxPriceImpactPercent),
			Severity: models.SeverityError,
		}
	}
	if impact > c.config.WarnPriceImpactPercent {
		return models.SafetyCheck{
			Passed:   true,
			Reason:   fmt.Sprintf("Price impact %.2f%% is above warning threshold %v%%", impact, c.config.WarnPriceImpactPercent),
			Severity: models.SeverityWarning,
		}
	}
	return models.SafetyCheck{
		Passed:   true,
		Reason:   fmt.Sprintf("Price impact %.2f%% is acceptable", impact),
		Severity: models.SeverityInfo,
	}
}

func (c *Checker) checkSlippage(q *models.Quote) models.SafetyCheck {
	bps := q.SlippageBps

	if bps > c.config.MaxSlippageBps {
		return models.SafetyCheck{
			Passed:   false,
			Reason:   fmt.Sprintf("Slippage %dbps exceeds maximum %dbps", bps, c.config.MaxSlippageBps),
			Severity: models.SeverityError,
		}
	}
	if bps > c.config.WarnSlippageBps {
		return models.SafetyCheck{
			Passed:   true,
			Reason:   fmt.Sprintf("Slippage %dbps is above warning threshold %dbps", bps, c.config.WarnSlippageBps),
			Severity: models.SeverityWarning,
		}
	}
	return models.SafetyCheck{
		Passed:   true,
		Reason:   fmt.Sprintf("Slippage %dbps is acceptable", bps),
		Severity: models.SeverityInfo,
	}
}

func (c *Checker) checkRouteCount(q *models.Quote) models.SafetyCheck {
	n := len(q.RoutePlan)

	if n < c.config.MinRouteCount {
		return models.SafetyCheck{
			Passed:   false,
			Reason:   fmt.Sprintf("Only %d route(s) found, minimum is %d", n, c.config.MinRouteCount),
			Severity: models.SeverityError,
		}
	}
	return models.SafetyCheck{
		Passed:   true,
		Reason:   fmt.Sprintf("Found %d route(s)", n),
		Severity: models.SeverityInfo,
	}
}

// checkOutputAmount compares output to input in human units. A low ratio is
// only a warning. A zero ratio (zero input or output) is not flagged at all,
// which lets degenerate quotes through this check.
func (c *Checker) checkOutputAmount(q *models.Quote, inputDecimals, outputDecimals int32) models.SafetyCheck {
	ratio := q.Rate(inputDecimals, outputDecimals)
	out := q.OutputAmount(outputDecimals)

	if ratio < c.config.MinOutputRatio && ratio > 0 {
		return models.SafetyCheck{
			Passed:   false,
			Reason:   fmt.Sprintf("Output ratio %.4f is below minimum %v", ratio, c.config.MinOutputRatio),
			Severity: models.SeverityWarning,
		}
	}
	return models.SafetyCheck{
		Passed:   true,
		Reason:   fmt.Sprintf("Output amount %.6f appears reasonable", out),
		Severity: models.SeverityInfo,
	}
}

func (c *Checker) checkLiquidityDepth(q *models.Quote) models.SafetyCheck {
	splits := len(q.RoutePlan)

	if splits > fragmentedRouteCount {
		return models.SafetyCheck{
			Passed:   true,
			Reason:   fmt.Sprintf("Swap split across %d routes - may indicate fragmented liquidity", splits),
			Severity: models.SeverityWarning,
		}
	}
	return models.SafetyCheck{
		Passed:   true,
		Reason:   fmt.Sprintf("Liquidity depth appears adequate (%d route(s))", splits),
		Severity: models.SeverityInfo,
	}
}
