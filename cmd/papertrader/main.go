package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gregtusar/papertrader/api"
	"github.com/gregtusar/papertrader/internal/config"
	"github.com/gregtusar/papertrader/pkg/indicators"
	"github.com/gregtusar/papertrader/pkg/jupiter"
	"github.com/gregtusar/papertrader/pkg/metrics"
	"github.com/gregtusar/papertrader/pkg/models"
	"github.com/gregtusar/papertrader/pkg/safety"
	"github.com/gregtusar/papertrader/pkg/trader"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "papertrader",
		Short: "Solana swap paper trading system",
		Long:  `Monitors Jupiter swap quotes, derives RSI/MACD trading signals and simulates trades against a virtual portfolio`,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(runCmd(), checkCmd(), analyzeCmd(), quoteCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setup() *config.Config {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	l, err := cfg.Logging.NewLogger()
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure logging")
	}
	logger = l
	return cfg
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the quote monitor, paper trader and status API",
		Run:   runTrader,
	}
}

func runTrader(cmd *cobra.Command, args []string) {
	cfg := setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := safety.NewChecker(cfg.Safety)
	paper := trader.NewPaperTrader(cfg.Paper, checker, logger)
	m := metrics.NewMetrics("")
	m.ObservePortfolio(paper.Portfolio())

	client := jupiter.NewClient(cfg.Jupiter, logger)
	monitor := trader.NewMonitor(cfg.Monitor, client, paper, cfg.Pairs, m, logger)

	hub := api.NewHub(logger)
	monitor.Subscribe(hub.Broadcast)

	if err := monitor.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start monitor")
	}

	apiServer := api.NewServer(paper, monitor, checker, m, hub, logger, strconv.Itoa(cfg.Server.Port))
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.WithFields(logrus.Fields{
		"pairs":   len(cfg.Pairs),
		"trading": cfg.Monitor.TradingEnabled,
	}).Info("Paper trader is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Received shutdown signal")

	monitor.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down API server")
	}

	if _, err := paper.SaveSession(cfg.Server.SessionDir, ""); err != nil {
		logger.WithError(err).Error("Failed to save session")
	}

	p := paper.Portfolio()
	h := paper.TradeHistory()
	logger.WithFields(logrus.Fields{
		"total_value": p.TotalValue,
		"total_pnl":   p.TotalPnL,
		"pnl_percent": p.TotalPnLPercent,
		"trades":      h.TotalTrades,
		"win_rate":    h.WinRate,
	}).Info("Paper trader stopped")
}

func checkCmd() *cobra.Command {
	var inputDecimals, outputDecimals int32

	cmd := &cobra.Command{
		Use:   "check <quote.json>",
		Short: "Run the safety checks against a saved quote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read quote: %w", err)
			}
			var quote models.Quote
			if err := json.Unmarshal(data, &quote); err != nil {
				return fmt.Errorf("failed to decode quote: %w", err)
			}
			if err := quote.Validate(); err != nil {
				return err
			}

			result := safety.NewChecker(cfg.Safety).CheckQuote(&quote, inputDecimals, outputDecimals)
			fmt.Fprint(cmd.OutOrStdout(), safety.Report(result))
			if !result.Safe {
				return fmt.Errorf("quote is not safe to execute")
			}
			return nil
		},
	}

	cmd.Flags().Int32Var(&inputDecimals, "input-decimals", 9, "input token decimals")
	cmd.Flags().Int32Var(&outputDecimals, "output-decimals", 6, "output token decimals")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var pair string

	cmd := &cobra.Command{
		Use:   "analyze <prices.csv|prices.json>",
		Short: "Compute indicators and a trading signal over a price file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := loadPrices(args[0])
			if err != nil {
				return err
			}
			if len(points) <= indicators.DefaultRSIPeriod {
				fmt.Fprintf(cmd.ErrOrStderr(), "only %d prices, indicators fall back to neutral defaults\n", len(points))
			}

			analysis, err := analyzeSeries(pair, points)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		},
	}

	cmd.Flags().StringVar(&pair, "pair", "SOL/USDC", "pair name to label the analysis with")
	return cmd
}

func quoteCmd() *cobra.Command {
	var (
		pairName  string
		amount    float64
		slippages string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch live quotes at several slippages and pick the safest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup()

			var pair *models.Pair
			for i := range cfg.Pairs {
				if cfg.Pairs[i].Name == pairName {
					pair = &cfg.Pairs[i]
				}
			}
			if pair == nil {
				return fmt.Errorf("unknown pair %s", pairName)
			}

			bps, err := parseSlippages(slippages)
			if err != nil {
				return err
			}

			client := jupiter.NewClient(cfg.Jupiter, logger)
			quotes, err := client.GetQuotes(cmd.Context(), models.QuoteRequest{
				InputMint:  pair.InputMint,
				OutputMint: pair.OutputMint,
				Amount:     models.RawAmount(amount, pair.InputDecimals),
			}, bps)
			if err != nil {
				return err
			}

			checker := safety.NewChecker(cfg.Safety)
			selection, ok := checker.SelectSafest(quotes, pair.InputDecimals, pair.OutputDecimals)
			if !ok {
				return fmt.Errorf("none of %d quotes passed the safety checks", len(quotes))
			}

			q := selection.Quote
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v %s -> %v %s (slippage %dbps, price %.6f)\n",
				pair.Name,
				q.InputAmount(pair.InputDecimals), pair.InputSymbol,
				q.OutputAmount(pair.OutputDecimals), pair.OutputSymbol,
				q.SlippageBps, q.ExecutionPrice(pair.InputDecimals, pair.OutputDecimals))
			fmt.Fprint(cmd.OutOrStdout(), safety.Report(selection.Safety))
			return nil
		},
	}

	cmd.Flags().StringVar(&pairName, "pair", "SOL/USDC", "configured pair to quote")
	cmd.Flags().Float64Var(&amount, "amount", 10, "input amount in human units")
	cmd.Flags().StringVar(&slippages, "slippage", "10,50,100", "comma separated slippage settings in bps")
	return cmd
}

func parseSlippages(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		bps, err := strconv.Atoi(f)
		if err != nil || bps < 0 {
			return nil, fmt.Errorf("invalid slippage %q", f)
		}
		out = append(out, bps)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no slippage values")
	}
	return out, nil
}
