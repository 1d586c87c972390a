// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Backtest metrics
	BacktestRunsTotal    *prometheus.CounterVec
	BacktestDuration     prometheus.Histogram
	TradesSimulated      prometheus.Counter
	OpportunitiesSkipped *prometheus.CounterVec
	StructureEvents      *prometheus.CounterVec

	// Portfolio metrics
	PortfolioRunsTotal *prometheus.CounterVec
	PortfolioDuration  prometheus.Histogram

	// Optimizer metrics
	CandidatesEvaluated prometheus.Counter
	CandidatesRejected  *prometheus.CounterVec
	OptimizerRounds     prometheus.Counter
	OptimizerDuration   prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "smc_lab"
	}

	return &Metrics{
		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of single-strategy backtests by result status",
		}, []string{"status"}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Single-strategy backtest duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of closed simulated trades",
		}),
		OpportunitiesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "opportunities_skipped_total",
			Help:      "Total number of accepted signals that could not be sized, by reason",
		}, []string{"reason"}),
		StructureEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "structure",
			Name:      "events_total",
			Help:      "Total number of structure events by kind",
		}, []string{"kind"}),

		// Portfolio metrics
		PortfolioRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "runs_total",
			Help:      "Total number of portfolio simulations by outcome",
		}, []string{"outcome"}),
		PortfolioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "duration_seconds",
			Help:      "Portfolio simulation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),

		// Optimizer metrics
		CandidatesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "candidates_evaluated_total",
			Help:      "Total number of portfolio simulations run by the optimizer",
		}),
		CandidatesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "candidates_rejected_total",
			Help:      "Total number of strategies discarded before seeding, by reason",
		}, []string{"reason"}),
		OptimizerRounds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "rounds_total",
			Help:      "Total number of greedy rounds that added a strategy",
		}),
		OptimizerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "duration_seconds",
			Help:      "Optimizer run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest or optimizer run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBacktest records one single-strategy backtest.
func RecordBacktest(status string, trades int, durationSeconds float64) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BacktestDuration.Observe(durationSeconds)
	DefaultMetrics.TradesSimulated.Add(float64(trades))
}

// RecordSkipped records accepted signals that could not be sized.
func RecordSkipped(reason string, n int) {
	DefaultMetrics.OpportunitiesSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordStructureEvent records a structure event by kind.
func RecordStructureEvent(kind string) {
	DefaultMetrics.StructureEvents.WithLabelValues(kind).Inc()
}

// RecordPortfolioRun records a portfolio simulation.
func RecordPortfolioRun(liquidated bool, durationSeconds float64) {
	outcome := "completed"
	if liquidated {
		outcome = "liquidated"
	}
	DefaultMetrics.PortfolioRunsTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.PortfolioDuration.Observe(durationSeconds)
}

// RecordCandidateEvaluated increments the optimizer simulation counter.
func RecordCandidateEvaluated() {
	DefaultMetrics.CandidatesEvaluated.Inc()
}

// RecordCandidateRejected records a strategy discarded by the optimizer.
func RecordCandidateRejected(reason string) {
	DefaultMetrics.CandidatesRejected.WithLabelValues(reason).Inc()
}

// RecordOptimizerRound increments the greedy round counter.
func RecordOptimizerRound() {
	DefaultMetrics.OptimizerRounds.Inc()
}

// RecordOptimizerRun records optimizer duration.
func RecordOptimizerRun(durationSeconds float64) {
	DefaultMetrics.OptimizerDuration.Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkSuccess sets the last successful run gauge.
func MarkSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}
