package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/gregtusar/papertrader/pkg/jupiter"
	"github.com/gregtusar/papertrader/pkg/models"
	"github.com/gregtusar/papertrader/pkg/safety"
	"github.com/gregtusar/papertrader/pkg/secrets"
	"github.com/gregtusar/papertrader/pkg/trader"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type Config struct {
	Server  ServerConfig         `mapstructure:"server"`
	Jupiter jupiter.Config       `mapstructure:"jupiter"`
	Safety  safety.Config        `mapstructure:"safety"`
	Paper   trader.Config        `mapstructure:"paper"`
	Monitor trader.MonitorConfig `mapstructure:"monitor"`
	Pairs   []models.Pair        `mapstructure:"pairs"`
	Logging LoggingConfig        `mapstructure:"logging"`
	GCP     GCPConfig            `mapstructure:"gcp"`
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	SessionDir string `mapstructure:"session_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type GCPConfig struct {
	ProjectID       string              `mapstructure:"project_id"`
	UseSecrets      bool                `mapstructure:"use_secrets"`
	CredentialsFile string              `mapstructure:"credentials_file"`
	SecretNames     secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/papertrader")
	}

	v.SetEnvPrefix("PAPERTRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if len(config.Pairs) == 0 {
		config.Pairs = DefaultPairs()
	}

	overrideFromEnv(&config)

	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		logger := logrus.New()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func DefaultPairs() []models.Pair {
	return []models.Pair{{
		Name:           "SOL/USDC",
		InputMint:      usdcMint,
		OutputMint:     solMint,
		InputSymbol:    "USDC",
		OutputSymbol:   "SOL",
		InputDecimals:  6,
		OutputDecimals: 9,
	}}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.session_dir", "./sessions")

	v.SetDefault("jupiter.base_url", jupiter.DefaultBaseURL)
	v.SetDefault("jupiter.api_key", "")
	v.SetDefault("jupiter.timeout", "30s")
	v.SetDefault("jupiter.rate_limit", 1.0)
	v.SetDefault("jupiter.burst", 1)

	sc := safety.DefaultConfig()
	v.SetDefault("safety.max_price_impact_percent", sc.MaxPriceImpactPercent)
	v.SetDefault("safety.max_slippage_bps", sc.MaxSlippageBps)
	v.SetDefault("safety.min_route_count", sc.MinRouteCount)
	v.SetDefault("safety.min_output_ratio", sc.MinOutputRatio)
	v.SetDefault("safety.warn_price_impact_percent", sc.WarnPriceImpactPercent)
	v.SetDefault("safety.warn_slippage_bps", sc.WarnSlippageBps)

	v.SetDefault("paper.starting_balance", 1000.0)
	v.SetDefault("paper.base_currency", "USDC")
	v.SetDefault("paper.max_position_percent", 0.0)
	v.SetDefault("paper.max_drawdown_percent", 0.0)

	mc := trader.DefaultMonitorConfig()
	v.SetDefault("monitor.interval", mc.Interval.String())
	v.SetDefault("monitor.window_size", mc.WindowSize)
	v.SetDefault("monitor.min_history", mc.MinHistory)
	v.SetDefault("monitor.change_lookback", mc.ChangeLookback)
	v.SetDefault("monitor.trading_enabled", false)
	v.SetDefault("monitor.min_confidence", mc.MinConfidence)
	v.SetDefault("monitor.min_trade_size", 10.0)
	v.SetDefault("monitor.max_trade_size", 100.0)
	v.SetDefault("monitor.max_daily_trades", mc.MaxDailyTrades)
	v.SetDefault("monitor.stop_loss_percent", mc.StopLossPercent)
	v.SetDefault("monitor.take_profit_percent", mc.TakeProfitPercent)
	v.SetDefault("monitor.slippage_bps", mc.SlippageBps)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")
	v.SetDefault("gcp.secret_names.jupiter_api_key", secrets.DefaultSecretNames().JupiterAPIKey)
}

func overrideFromEnv(config *Config) {
	if apiKey := os.Getenv("JUPITER_API_KEY"); apiKey != "" {
		config.Jupiter.APIKey = apiKey
	}

	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" && config.GCP.CredentialsFile == "" {
		config.GCP.CredentialsFile = creds
	}
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, config.GCP.CredentialsFile, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	applySecrets(ctx, config, secretManager)

	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}

// applySecrets fills credentials that are not already set.
func applySecrets(ctx context.Context, config *Config, src secrets.Source) {
	if config.Jupiter.APIKey == "" {
		config.Jupiter.APIKey = src.GetSecretWithDefault(ctx, config.GCP.SecretNames.JupiterAPIKey, "")
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if err := c.Safety.Validate(); err != nil {
		return fmt.Errorf("invalid safety config: %w", err)
	}

	if c.Paper.StartingBalance <= 0 {
		return fmt.Errorf("starting balance must be positive, got %v", c.Paper.StartingBalance)
	}
	if c.Paper.BaseCurrency == "" {
		return fmt.Errorf("base currency is required")
	}
	if c.Paper.MaxPositionPercent < 0 || c.Paper.MaxPositionPercent > 100 {
		return fmt.Errorf("max position percent must be within 0-100, got %v", c.Paper.MaxPositionPercent)
	}
	if c.Paper.MaxDrawdownPercent < 0 || c.Paper.MaxDrawdownPercent > 100 {
		return fmt.Errorf("max drawdown percent must be within 0-100, got %v", c.Paper.MaxDrawdownPercent)
	}

	m := c.Monitor
	if m.Interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %v", m.Interval)
	}
	if m.MinHistory < 1 || (m.WindowSize > 0 && m.MinHistory > m.WindowSize) {
		return fmt.Errorf("min history %d must be between 1 and window size %d", m.MinHistory, m.WindowSize)
	}
	if m.MinTradeSize <= 0 || m.MaxTradeSize < m.MinTradeSize {
		return fmt.Errorf("trade size range [%v, %v] is invalid", m.MinTradeSize, m.MaxTradeSize)
	}
	if m.MinConfidence < 0 || m.MinConfidence > 100 {
		return fmt.Errorf("min confidence must be within 0-100, got %v", m.MinConfidence)
	}

	if len(c.Pairs) == 0 {
		return fmt.Errorf("at least one trading pair is required")
	}
	seen := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		if p.Name == "" {
			return fmt.Errorf("trading pair name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate trading pair %s", p.Name)
		}
		seen[p.Name] = true

		if err := models.ValidateMint(p.InputMint); err != nil {
			return fmt.Errorf("pair %s: input mint: %w", p.Name, err)
		}
		if err := models.ValidateMint(p.OutputMint); err != nil {
			return fmt.Errorf("pair %s: output mint: %w", p.Name, err)
		}
		if p.InputSymbol == "" || p.OutputSymbol == "" {
			return fmt.Errorf("pair %s: symbols are required", p.Name)
		}
		if p.InputDecimals < 0 || p.InputDecimals > 18 || p.OutputDecimals < 0 || p.OutputDecimals > 18 {
			return fmt.Errorf("pair %s: decimals must be within 0-18", p.Name)
		}
	}
	return nil
}
