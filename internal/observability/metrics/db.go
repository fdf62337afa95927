package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DBPoolAcquiredConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_db_pool_acquired_connections",
			Help: "Number of acquired database connections, including the change feed listener",
		},
	)

	DBPoolIdleConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_db_pool_idle_connections",
			Help: "Number of idle database connections",
		},
	)

	DBPoolMaxConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_db_pool_max_connections",
			Help: "Maximum number of database connections",
		},
	)

	DBPoolTotalConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_db_pool_total_connections",
			Help: "Total number of database connections",
		},
	)

	DBListenerConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_db_listener_connected",
			Help: "Whether the change feed listener holds a LISTEN connection (1) or is reconnecting (0)",
		},
	)

	DBQueryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_db_query_duration_seconds",
			Help:    "Duration of users table queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_db_query_errors_total",
			Help: "Total number of users table query errors by operation and kind",
		},
		[]string{"operation", "error_type"},
	)
)
