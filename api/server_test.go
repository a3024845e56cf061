package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregtusar/papertrader/pkg/metrics"
	"github.com/gregtusar/papertrader/pkg/models"
	"github.com/gregtusar/papertrader/pkg/safety"
	"github.com/gregtusar/papertrader/pkg/trader"
)

const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	solMint  = "So11111111111111111111111111111111111111112"
)

type staticAnalyses []models.Analysis

func (s staticAnalyses) Latest() []models.Analysis { return s }

func testQuote(usdc, sol float64, impact string) *models.Quote {
	return &models.Quote{
		InputMint:      usdcMint,
		InAmount:       strconv.FormatInt(models.RawAmount(usdc, 6), 10),
		OutputMint:     solMint,
		OutAmount:      strconv.FormatInt(models.RawAmount(sol, 9), 10),
		SwapMode:       "ExactIn",
		SlippageBps:    50,
		PriceImpactPct: impact,
		RoutePlan: []models.RoutePlan{
			{SwapInfo: models.SwapInfo{Label: "Orca"}, Percent: 100},
		},
	}
}

type fixture struct {
	server *Server
	paper  *trader.PaperTrader
	hub    *Hub
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	checker := safety.NewChecker(safety.DefaultConfig())
	paper := trader.NewPaperTrader(trader.Config{StartingBalance: 1000, BaseCurrency: "USDC"}, checker, logger)
	hub := NewHub(logger)
	analyses := staticAnalyses{{Pair: "SOL/USDC", Price: 100, Signal: models.TradingSignal{Action: models.ActionHold, Confidence: 50}}}

	return fixture{
		server: NewServer(paper, analyses, checker, metrics.NewMetrics("test"), hub, logger, "0"),
		paper:  paper,
		hub:    hub,
	}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodOptions, "/api/portfolio", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Empty(t, rec.Body.String())
}

func TestPortfolioAndPositions(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.paper.ExecuteTrade(testQuote(100, 1, "0.001"), 6, 9, "USDC", "SOL").Success)

	rec := f.do(t, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 900.0, p.Cash)
	assert.InDelta(t, 1000.0, p.TotalValue, 1e-9)

	rec = f.do(t, http.MethodGet, "/api/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var positions []models.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "SOL", positions[0].Symbol)

	rec = f.do(t, http.MethodPost, "/api/portfolio", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTradesAndHistory(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.paper.ExecuteTrade(testQuote(100, 1, "0.001"), 6, 9, "USDC", "SOL").Success)
	require.True(t, f.paper.ClosePosition("SOL", 110, 0).Success)

	rec := f.do(t, http.MethodGet, "/api/trades", "")
	var trades []models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	assert.Len(t, trades, 2)

	rec = f.do(t, http.MethodGet, "/api/trades?limit=1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, models.TradeTypeSell, trades[0].Type)

	rec = f.do(t, http.MethodGet, "/api/trades?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/history", "")
	var h models.TradeHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, 2, h.TotalTrades)
	assert.InDelta(t, 10.0, h.NetPnL, 1e-9)
}

func TestAnalysis(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/analysis", "")

	var out []models.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "SOL/USDC", out[0].Pair)
}

func TestSafetyCheck(t *testing.T) {
	f := newFixture(t)

	body, err := json.Marshal(map[string]interface{}{
		"quote":           testQuote(100, 1, "0.03"),
		"input_decimals":  6,
		"output_decimals": 9,
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/safety/check", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Safe   bool                `json:"safe"`
		Checks models.SafetyChecks `json:"checks"`
		Report string              `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Safe)
	assert.False(t, out.Checks.PriceImpact.Passed)
	assert.Equal(t, models.SeverityError, out.Checks.PriceImpact.Severity)
	assert.Contains(t, out.Report, "Overall Status: UNSAFE")
}

func TestSafetyCheck_BadRequests(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/api/safety/check", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/safety/check", "{").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/safety/check", `{"input_decimals": 6}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/safety/check",
		`{"quote": {"inputMint": "nope", "outputMint": "nope", "inAmount": "1", "outAmount": "1"}}`).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_portfolio_total_value")
}

func TestStreamBroadcast(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	f.hub.Broadcast(models.Analysis{Pair: "SOL/USDC", Price: 101.5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "analysis", msg.Type)
	assert.Equal(t, "SOL/USDC", msg.Data.Pair)
	assert.Equal(t, 101.5, msg.Data.Price)

	f.hub.Close()
	assert.Equal(t, 0, f.hub.ClientCount())
}
