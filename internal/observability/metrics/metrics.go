package metrics

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "registry_"

	resultSuccess  = "success"
	resultError    = "error"
	resultCanceled = "canceled"

	outcomeSuccess  = "success"
	outcomeNoData   = "no_data"
	outcomeError    = "error"
	outcomeCanceled = "canceled"
)

var (
	registerOnce sync.Once

	runsTotal   *prometheus.CounterVec
	runLatency  *prometheus.HistogramVec
	runLastSize prometheus.Gauge

	documentsTotal *prometheus.CounterVec

	renderTotal   *prometheus.CounterVec
	renderLatency *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
)

// Init registers registry metrics and, when db is set, DB-backed gauges.
func Init(db *sql.DB, subscribersTable string, logger *slog.Logger) {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total registry generation runs by result",
			},
			[]string{"result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_latency_seconds",
				Help:    "Registry generation run latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"result"},
		)
		runLastSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "run_last_subscribers",
			Help: "Subscribers considered by the last completed run",
		})
		documentsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "documents_total",
				Help: "Per-subscriber registry outcomes",
			},
			[]string{"outcome"},
		)
		renderTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "render_total",
				Help: "Total registry documents rendered by format and result",
			},
			[]string{"format", "result"},
		)
		renderLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "render_latency_seconds",
				Help:    "Registry document render latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		)

		prometheus.MustRegister(
			runsTotal,
			runLatency,
			runLastSize,
			documentsTotal,
			renderTotal,
			renderLatency,
			httpRequests,
		)

		if db != nil && subscribersTable != "" {
			registerDBMetrics(db, subscribersTable, logger)
		}
	})
}

// ObserveRun records run latency and result.
func ObserveRun(result string, subscribers int, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(result).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if runLastSize != nil && result != resultError {
		runLastSize.Set(float64(subscribers))
	}
}

// IncDocument counts a per-subscriber outcome.
func IncDocument(outcome string) {
	if outcome == "" {
		outcome = outcomeError
	}
	if documentsTotal != nil {
		documentsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveRender records document render latency and result.
func ObserveRender(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if renderTotal != nil {
		renderTotal.WithLabelValues(format, result).Inc()
	}
	if renderLatency != nil {
		renderLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncHTTPRequest counts an HTTP request by route and status code class.
func IncHTTPRequest(route, status string) {
	if route == "" {
		route = "other"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(route, status).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultError    = resultError
	ResultCanceled = resultCanceled

	OutcomeSuccess  = outcomeSuccess
	OutcomeNoData   = outcomeNoData
	OutcomeError    = outcomeError
	OutcomeCanceled = outcomeCanceled
)
