package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://quote-api.jup.ag/v6", cfg.Jupiter.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Jupiter.Timeout)
	assert.Equal(t, 2.0, cfg.Safety.MaxPriceImpactPercent)
	assert.Equal(t, 100, cfg.Safety.MaxSlippageBps)
	assert.Equal(t, 0.90, cfg.Safety.MinOutputRatio)
	assert.Equal(t, 1000.0, cfg.Paper.StartingBalance)
	assert.Equal(t, "USDC", cfg.Paper.BaseCurrency)
	assert.Equal(t, 60*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 26, cfg.Monitor.MinHistory)
	assert.False(t, cfg.Monitor.TradingEnabled)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "jupiter-api-key", cfg.GCP.SecretNames.JupiterAPIKey)

	require.Len(t, cfg.Pairs, 1)
	assert.Equal(t, "SOL/USDC", cfg.Pairs[0].Name)
	assert.Equal(t, int32(9), cfg.Pairs[0].OutputDecimals)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
safety:
  max_price_impact_percent: 3.5
paper:
  starting_balance: 250
  max_drawdown_percent: 20
monitor:
  interval: 15s
  trading_enabled: true
  min_confidence: 85
pairs:
  - name: RAY/USDC
    input_mint: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    output_mint: 4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R
    input_symbol: USDC
    output_symbol: RAY
    input_decimals: 6
    output_decimals: 6
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3.5, cfg.Safety.MaxPriceImpactPercent)
	assert.Equal(t, 100, cfg.Safety.MaxSlippageBps)
	assert.Equal(t, 250.0, cfg.Paper.StartingBalance)
	assert.Equal(t, 20.0, cfg.Paper.MaxDrawdownPercent)
	assert.Equal(t, 15*time.Second, cfg.Monitor.Interval)
	assert.True(t, cfg.Monitor.TradingEnabled)
	assert.Equal(t, 85.0, cfg.Monitor.MinConfidence)

	require.Len(t, cfg.Pairs, 1)
	assert.Equal(t, "RAY", cfg.Pairs[0].OutputSymbol)
	assert.Equal(t, int32(6), cfg.Pairs[0].OutputDecimals)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PAPERTRADER_SERVER_PORT", "7070")
	t.Setenv("PAPERTRADER_PAPER_STARTING_BALANCE", "5000")
	t.Setenv("JUPITER_API_KEY", "from-env")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5000.0, cfg.Paper.StartingBalance)
	assert.Equal(t, "from-env", cfg.Jupiter.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "paper:\n  starting_balance: -1\n"))
	assert.ErrorContains(t, err, "starting balance")
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"bad safety", func(c *Config) { c.Safety.MaxPriceImpactPercent = 0 }, "safety"},
		{"no base currency", func(c *Config) { c.Paper.BaseCurrency = "" }, "base currency"},
		{"zero interval", func(c *Config) { c.Monitor.Interval = 0 }, "interval"},
		{"history above window", func(c *Config) { c.Monitor.MinHistory = 500 }, "min history"},
		{"inverted trade sizes", func(c *Config) { c.Monitor.MaxTradeSize = 1 }, "trade size"},
		{"no pairs", func(c *Config) { c.Pairs = nil }, "pair"},
		{"bad mint", func(c *Config) { c.Pairs[0].OutputMint = "0xdeadbeef" }, "output mint"},
		{"duplicate pair", func(c *Config) { c.Pairs = append(c.Pairs, c.Pairs[0]) }, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretWithDefault(_ context.Context, name, def string) string {
	if v, ok := f[name]; ok {
		return v
	}
	return def
}

func TestApplySecrets(t *testing.T) {
	src := fakeSecrets{"jupiter-api-key": "from-gcp"}

	cfg := validConfig(t)
	applySecrets(context.Background(), cfg, src)
	assert.Equal(t, "from-gcp", cfg.Jupiter.APIKey)

	cfg = validConfig(t)
	cfg.Jupiter.APIKey = "explicit"
	applySecrets(context.Background(), cfg, src)
	assert.Equal(t, "explicit", cfg.Jupiter.APIKey)
}

func TestNewLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "trader.log")

	logger, err := LoggingConfig{Level: "debug", Format: "json", File: logFile}.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger.Info("hello")
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	logger, err = LoggingConfig{Level: "nope", Format: "text"}.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
