// Package jupiter is a read-only client for the Jupiter v6 swap quote API.
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gregtusar/papertrader/pkg/models"
)

const DefaultBaseURL = "https://quote-api.jup.ag/v6"

type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	// requests per second, 0 means unlimited
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewClient(config Config, logger *logrus.Logger) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger,
	}
}

// GetQuote fetches a single ExactIn quote.
func (c *Client) GetQuote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	if err := models.ValidateMint(req.InputMint); err != nil {
		return nil, fmt.Errorf("input mint: %w", err)
	}
	if err := models.ValidateMint(req.OutputMint); err != nil {
		return nil, fmt.Errorf("output mint: %w", err)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", req.Amount)
	}

	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", strconv.FormatInt(req.Amount, 10))
	params.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	if req.OnlyDirectRoutes {
		params.Set("onlyDirectRoutes", "true")
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/quote", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("quote request failed with status %d: %s", resp.StatusCode, body)
	}

	var quote models.Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	if err := quote.Validate(); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"input_mint":   quote.InputMint,
		"output_mint":  quote.OutputMint,
		"in_amount":    quote.InAmount,
		"out_amount":   quote.OutAmount,
		"price_impact": quote.PriceImpactPct,
		"routes":       len(quote.RoutePlan),
	}).Debug("Quote received")

	return &quote, nil
}

// GetQuotes fetches one quote per slippage setting. Failed requests are
// logged and skipped; an error is returned only when every request fails.
func (c *Client) GetQuotes(ctx context.Context, req models.QuoteRequest, slippages []int) ([]*models.Quote, error) {
	quotes := make([]*models.Quote, 0, len(slippages))
	var lastErr error

	for _, bps := range slippages {
		r := req
		r.SlippageBps = bps
		q, err := c.GetQuote(ctx, r)
		if err != nil {
			c.logger.WithError(err).WithField("slippage_bps", bps).Warn("Failed to get quote")
			lastErr = err
			continue
		}
		quotes = append(quotes, q)
	}

	if len(quotes) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return quotes, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	return resp, nil
}
