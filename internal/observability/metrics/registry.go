package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_requests_total",
			Help: "Total number of registry HTTP requests",
		},
		[]string{"method", "path"},
	)

	RegistryRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_requests_in_flight",
			Help: "Number of registry HTTP requests currently being processed",
		},
	)

	RegistryRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_request_duration_seconds",
			Help:    "Duration of registry HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	UsersRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_users_registered_total",
			Help: "Total number of users registered",
		},
	)

	UsersDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_users_deleted_total",
			Help: "Total number of users deleted",
		},
	)

	ControllerCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_controller_commands_total",
			Help: "Total number of registration controller commands by command and result",
		},
		[]string{"command", "result"},
	)

	ControllerRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_controller_refreshes_total",
			Help: "Total number of list refreshes by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	ControllerDiscardedWritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_controller_discarded_writes_total",
			Help: "Total number of state writes discarded because the controller was closed",
		},
	)

	ChangefeedNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_changefeed_notifications_total",
			Help: "Total number of change notifications received by operation",
		},
		[]string{"op"},
	)

	ChangefeedReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_changefeed_reconnects_total",
			Help: "Total number of change feed listener reconnects",
		},
	)

	ChangefeedDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_changefeed_dropped_total",
			Help: "Total number of change events dropped for slow subscribers",
		},
	)

	ChangefeedSubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_changefeed_subscribers_active",
			Help: "Number of live change feed subscriptions",
		},
	)

	WebSocketSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_websocket_sessions_active",
			Help: "Number of live registration websocket sessions",
		},
	)

	WebSocketSessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_websocket_sessions_total",
			Help: "Total number of registration websocket sessions opened",
		},
	)

	WebSocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_websocket_messages_total",
			Help: "Total number of websocket messages received by type",
		},
		[]string{"message_type"},
	)

	WebSocketErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_websocket_errors_total",
			Help: "Total number of websocket errors by type",
		},
		[]string{"error_type"},
	)
)
