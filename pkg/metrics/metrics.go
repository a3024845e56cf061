// Package metrics provides Prometheus metrics for the paper trading loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gregtusar/papertrader/pkg/models"
)

// Metrics holds the application metrics and the registry they live in.
type Metrics struct {
	// Monitor metrics
	QuotesFetched prometheus.Counter
	QuoteErrors   *prometheus.CounterVec
	QuoteLatency  prometheus.Histogram
	Signals       *prometheus.CounterVec

	// Portfolio metrics
	TradesExecuted *prometheus.CounterVec
	TradesRejected *prometheus.CounterVec
	PortfolioValue prometheus.Gauge
	Cash           prometheus.Gauge
	TotalPnL       prometheus.Gauge
	OpenPositions  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a Metrics instance backed by a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "papertrader"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		QuotesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "quotes_fetched_total",
			Help:      "Total number of quotes fetched",
		}),
		QuoteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "quote_errors_total",
			Help:      "Total number of failed quote fetches",
		}, []string{"pair"}),
		QuoteLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "quote_latency_seconds",
			Help:      "Quote fetch latency",
			Buckets:   prometheus.DefBuckets,
		}),
		Signals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "signals_total",
			Help:      "Trading signals generated by action",
		}, []string{"pair", "action"}),

		TradesExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "trades_executed_total",
			Help:      "Paper trades executed by type",
		}, []string{"type"}),
		TradesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "trades_rejected_total",
			Help:      "Paper trades rejected by reason",
		}, []string{"reason"}),
		PortfolioValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "total_value",
			Help:      "Total portfolio value in base currency",
		}),
		Cash: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "cash",
			Help:      "Cash balance in base currency",
		}),
		TotalPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "total_pnl",
			Help:      "Total profit and loss in base currency",
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "open_positions",
			Help:      "Number of open positions",
		}),

		registry: reg,
	}
}

// ObservePortfolio updates the portfolio gauges from a snapshot.
func (m *Metrics) ObservePortfolio(p models.Portfolio) {
	m.PortfolioValue.Set(p.TotalValue)
	m.Cash.Set(p.Cash)
	m.TotalPnL.Set(p.TotalPnL)
	m.OpenPositions.Set(float64(len(p.Positions)))
}

// ObserveTrade records the outcome of a portfolio mutation.
func (m *Metrics) ObserveTrade(result models.TradeResult, rejectReason string) {
	if result.Success && result.Trade != nil {
		m.TradesExecuted.WithLabelValues(string(result.Trade.Type)).Inc()
	} else {
		m.TradesRejected.WithLabelValues(rejectReason).Inc()
	}
	m.ObservePortfolio(result.Portfolio)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
