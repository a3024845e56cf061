package safety

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregtusar/papertrader/pkg/models"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// 0.1 SOL -> 24.56789 USDC over two routes.
func testQuote() *models.Quote {
	return &models.Quote{
		InputMint:      solMint,
		InAmount:       "100000000",
		OutputMint:     usdcMint,
		OutAmount:      "24567890",
		SwapMode:       "ExactIn",
		SlippageBps:    50,
		PriceImpactPct: "0.000234",
		RoutePlan:      routes(2),
	}
}

func routes(n int) []models.RoutePlan {
	out := make([]models.RoutePlan, n)
	for i := range out {
		out[i] = models.RoutePlan{
			SwapInfo: models.SwapInfo{Label: fmt.Sprintf("amm-%d", i)},
			Percent:  100 / float64(n),
		}
	}
	return out
}

func TestCheckQuote_AllInfo(t *testing.T) {
	c := NewChecker(DefaultConfig())

	result := c.CheckQuote(testQuote(), 9, 6)

	assert.True(t, result.Safe)
	for _, nc := range result.Checks.Named() {
		assert.True(t, nc.Check.Passed, nc.Name)
		assert.Equal(t, models.SeverityInfo, nc.Check.Severity, nc.Name)
	}
	assert.Equal(t, "Found 2 route(s)", result.Checks.RouteCount.Reason)
}

func TestCheckQuote_PriceImpactAboveMaxIsUnsafe(t *testing.T) {
	c := NewChecker(DefaultConfig())
	q := testQuote()
	q.PriceImpactPct = "0.035"

	result := c.CheckQuote(q, 9, 6)

	assert.False(t, result.Safe)
	assert.False(t, result.Checks.PriceImpact.Passed)
	assert.Equal(t, models.SeverityError, result.Checks.PriceImpact.Severity)
	assert.Equal(t, "Price impact 3.50% exceeds maximum 2%", result.Checks.PriceImpact.Reason)
	// the other checks still pass
	assert.True(t, result.Checks.Slippage.Passed)
	assert.True(t, result.Checks.RouteCount.Passed)
}

func TestCheckQuote_NegativePriceImpactUsesMagnitude(t *testing.T) {
	c := NewChecker(DefaultConfig())
	q := testQuote()
	q.PriceImpactPct = "-0.025"

	result := c.CheckQuote(q, 9, 6)

	assert.False(t, result.Safe)
	assert.Equal(t, models.SeverityError, result.Checks.PriceImpact.Severity)
}

func TestCheckQuote_Warnings(t *testing.T) {
	c := NewChecker(DefaultConfig())
	q := testQuote()
	q.PriceImpactPct = "0.015"
	q.SlippageBps = 75
	q.RoutePlan = routes(6)

	result := c.CheckQuote(q, 9, 6)

	assert.True(t, result.Safe)
	assert.Equal(t, models.SeverityWarning, result.Checks.PriceImpact.Severity)
	assert.Equal(t, models.SeverityWarning, result.Checks.Slippage.Severity)
	assert.Equal(t, models.SeverityWarning, result.Checks.LiquidityDepth.Severity)
	assert.True(t, result.Checks.LiquidityDepth.Passed)
}

func TestCheckQuote_SlippageAboveMax(t *testing.T) {
	c := NewChecker(DefaultConfig())
	q := testQuote()
	q.SlippageBps = 150

	result := c.CheckQuote(q, 9, 6)

	assert.False(t, result.Safe)
	assert.Equal(t, "Slippage 150bps exceeds maximum 100bps", result.Checks.Slippage.Reason)
}

func TestCheckQuote_NoRoutes(t *testing.T) {
	c := NewChecker(DefaultConfig())
	q := testQuote()
	q.RoutePlan = nil

	result := c.CheckQuote(q, 9, 6)

	assert.False(t, result.Safe)
	assert.Equal(t, models.SeverityError, result.Checks.RouteCount.Severity)
}

func TestCheckQuote_LowOutputRatioOnlyWarns(t *testing.T) {
	c := NewChecker(DefaultConfig())
	q := testQuote()
	// 1 USDC in (6 decimals) for 0.5 USDT out
	q.InAmount = "1000000"
	q.OutAmount = "500000"

	result := c.CheckQuote(q, 6, 6)

	assert.True(t, result.Safe)
	assert.False(t, result.Checks.OutputAmount.Passed)
	assert.Equal(t, models.SeverityWarning, result.Checks.OutputAmount.Severity)
	assert.Equal(t, "Output ratio 0.5000 is below minimum 0.9", result.Checks.OutputAmount.Reason)
}

func TestCheckQuote_ZeroRatioIsNotFlagged(t *testing.T) {
	c := NewChecker(DefaultConfig())

	zeroOut := testQuote()
	zeroOut.OutAmount = "0"
	assert.True(t, c.CheckQuote(zeroOut, 9, 6).Checks.OutputAmount.Passed)

	zeroIn := testQuote()
	zeroIn.InAmount = "0"
	assert.True(t, c.CheckQuote(zeroIn, 9, 6).Checks.OutputAmount.Passed)
}

func TestSelectSafest(t *testing.T) {
	c := NewChecker(DefaultConfig())

	low := testQuote()
	low.OutAmount = "24000000"

	high := testQuote()
	high.OutAmount = "25000000"
	high.PriceImpactPct = "0.005"

	unsafe := testQuote()
	unsafe.OutAmount = "30000000"
	unsafe.PriceImpactPct = "0.05"

	sel, ok := c.SelectSafest([]*models.Quote{low, unsafe, high}, 9, 6)

	require.True(t, ok)
	assert.Same(t, high, sel.Quote)
	assert.True(t, sel.Safety.Safe)
}

func TestSelectSafest_TieBreak(t *testing.T) {
	c := NewChecker(DefaultConfig())

	first := testQuote()
	first.PriceImpactPct = "0.008"
	second := testQuote()
	second.PriceImpactPct = "0.001"
	third := testQuote()
	third.PriceImpactPct = "0.001"

	sel, ok := c.SelectSafest([]*models.Quote{first, second, third}, 9, 6)
	require.True(t, ok)
	assert.Same(t, second, sel.Quote)

	a, b := testQuote(), testQuote()
	sel, ok = c.SelectSafest([]*models.Quote{a, b}, 9, 6)
	require.True(t, ok)
	assert.Same(t, a, sel.Quote)
}

func TestSelectSafest_NoneSafe(t *testing.T) {
	c := NewChecker(DefaultConfig())
	q := testQuote()
	q.SlippageBps = 500

	sel, ok := c.SelectSafest([]*models.Quote{q, nil}, 9, 6)

	assert.False(t, ok)
	assert.Nil(t, sel)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.WarnSlippageBps = 200
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxPriceImpactPercent = 0
	assert.Error(t, cfg.Validate())
}

func TestReport(t *testing.T) {
	c := NewChecker(DefaultConfig())
	q := testQuote()
	q.PriceImpactPct = "0.035"

	report := Report(c.CheckQuote(q, 9, 6))

	assert.Contains(t, report, "Overall Status: UNSAFE")
	assert.Contains(t, report, "[ERROR] priceImpact: Price impact 3.50% exceeds maximum 2%")
	assert.Contains(t, report, "[INFO] routeCount: Found 2 route(s)")
}

func TestLogReport(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c := NewChecker(DefaultConfig())
	q := testQuote()
	q.SlippageBps = 75

	LogReport(logger, c.CheckQuote(q, 9, 6))

	entries := hook.AllEntries()
	require.Len(t, entries, 6)
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, "slippage", entries[1].Data["check"])
	assert.Equal(t, true, hook.LastEntry().Data["safe"])
}
