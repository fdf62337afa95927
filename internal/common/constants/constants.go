package constants

import "time"

const (
	UserNameMaxLength  = 120
	UserEmailMaxLength = 254
	JWTSecretMinLength = 32

	DefaultMaxRequestSize = 1 << 16
	DefaultListLimit      = 500

	DBPoolMaxConns        = 25
	DBPoolMinConns        = 2
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBMigrationTimeout    = 1 * time.Minute

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultRegistryHTTPPort       = "8080"
	DefaultRegistryRequestTimeout = 5 * time.Second

	DefaultChangefeedChannel        = "users_changed"
	DefaultSubscriberBufferSize     = 16
	ChangefeedReconnectInitialDelay = 250 * time.Millisecond
	ChangefeedReconnectMaxDelay     = 10 * time.Second

	DefaultCircuitBreakerThreshold = 20
	DefaultCircuitBreakerTimeout   = 5 * time.Second
	DefaultCircuitBreakerReset     = 10 * time.Second

	DefaultWebSocketWriteWait      = 10 * time.Second
	DefaultWebSocketPongWait       = 60 * time.Second
	DefaultWebSocketPingPeriod     = 54 * time.Second
	DefaultWebSocketMaxMsgSize     = 16 * 1024
	DefaultWebSocketSendBufSize    = 16
	DefaultWebSocketMaxSessions    = 1000
	WebSocketShutdownNotifyTimeout = 2 * time.Second

	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	RateLimitWriteRequestsPerSecond = 2.0
	RateLimitWriteBurst             = 5
	RateLimitReadRequestsPerSecond  = 20.0
	RateLimitReadBurst              = 40
	RateLimitCleanupInterval        = 5 * time.Minute

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
