package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gregtusar/papertrader/pkg/metrics"
	"github.com/gregtusar/papertrader/pkg/models"
	"github.com/gregtusar/papertrader/pkg/safety"
	"github.com/gregtusar/papertrader/pkg/trader"
)

// AnalysisProvider exposes the latest analysis per pair.
type AnalysisProvider interface {
	Latest() []models.Analysis
}

type Server struct {
	paper    *trader.PaperTrader
	analyses AnalysisProvider
	checker  *safety.Checker
	metrics  *metrics.Metrics
	hub      *Hub
	logger   *logrus.Logger
	port     string

	httpServer *http.Server
}

func NewServer(paper *trader.PaperTrader, analyses AnalysisProvider, checker *safety.Checker, m *metrics.Metrics, hub *Hub, logger *logrus.Logger, port string) *Server {
	return &Server{
		paper:    paper,
		analyses: analyses,
		checker:  checker,
		metrics:  m,
		hub:      hub,
		logger:   logger,
		port:     port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/safety/check", s.handleSafetyCheck)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/ws", s.hub.ServeWS)

	return corsMiddleware(mux)
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting API server on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"clients":   s.hub.ClientCount(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.paper.Portfolio())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	portfolio := s.paper.Portfolio()
	positions := make([]models.Position, 0, len(portfolio.Positions))
	for _, pos := range portfolio.Positions {
		positions = append(positions, *pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	s.writeJSON(w, http.StatusOK, positions)
}

// handleTrades returns the ledger, optionally only the last ?limit=N trades.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	trades := s.paper.Trades()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if limit < len(trades) {
			trades = trades[len(trades)-limit:]
		}
	}

	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.paper.TradeHistory())
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.analyses.Latest())
}

type safetyCheckRequest struct {
	Quote          *models.Quote `json:"quote"`
	InputDecimals  int32         `json:"input_decimals"`
	OutputDecimals int32         `json:"output_decimals"`
}

type safetyCheckResponse struct {
	models.SafetyCheckResult
	Report string `json:"report"`
}

func (s *Server) handleSafetyCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req safetyCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Quote == nil {
		http.Error(w, "quote is required", http.StatusBadRequest)
		return
	}
	if err := req.Quote.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.checker.CheckQuote(req.Quote, req.InputDecimals, req.OutputDecimals)
	safety.LogReport(s.logger, result)

	s.writeJSON(w, http.StatusOK, safetyCheckResponse{
		SafetyCheckResult: result,
		Report:            safety.Report(result),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
