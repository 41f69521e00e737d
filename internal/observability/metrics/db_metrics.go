package metrics

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, table string, logger *slog.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "subscribers",
			Help: "Subscribers currently stored",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM "+table)
		},
	))
}

func queryCount(db *sql.DB, logger *slog.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Warn("metrics query failed", "err", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
