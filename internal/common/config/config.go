package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
)

type RegistryConfig struct {
	HTTPPort       string
	DatabaseURL    string
	APIKey         string
	JWTSecret      string
	RequestTimeout time.Duration

	ChangefeedChannel    string
	SubscriberBufferSize int

	WebSocketWriteWait   time.Duration
	WebSocketPongWait    time.Duration
	WebSocketPingPeriod  time.Duration
	WebSocketMaxMsgSize  int64
	WebSocketSendBufSize int
	WebSocketMaxSessions int

	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration
}

type MigrateConfig struct {
	DatabaseURL string
}

// LoadRegistryConfig reads the service configuration from the environment.
// The store URL, the public API key and its signing secret have no defaults.
func LoadRegistryConfig() (RegistryConfig, error) {
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return RegistryConfig{}, err
	}

	apiKey, err := mustEnv("REGISTRY_API_KEY")
	if err != nil {
		return RegistryConfig{}, err
	}

	jwtSecret, err := mustEnv("REGISTRY_JWT_SECRET")
	if err != nil {
		return RegistryConfig{}, err
	}

	if err := validateJWTSecret(jwtSecret); err != nil {
		return RegistryConfig{}, err
	}

	cfg := RegistryConfig{
		HTTPPort:       getEnv("REGISTRY_HTTP_PORT", constants.DefaultRegistryHTTPPort),
		DatabaseURL:    databaseURL,
		APIKey:         apiKey,
		JWTSecret:      jwtSecret,
		RequestTimeout: getDurationEnv("REGISTRY_REQUEST_TIMEOUT", constants.DefaultRegistryRequestTimeout),

		ChangefeedChannel:    getEnv("REGISTRY_CHANGEFEED_CHANNEL", constants.DefaultChangefeedChannel),
		SubscriberBufferSize: getIntEnv("REGISTRY_SUBSCRIBER_BUFFER", constants.DefaultSubscriberBufferSize),

		WebSocketWriteWait:   getDurationEnv("REGISTRY_WS_WRITE_WAIT", constants.DefaultWebSocketWriteWait),
		WebSocketPongWait:    getDurationEnv("REGISTRY_WS_PONG_WAIT", constants.DefaultWebSocketPongWait),
		WebSocketPingPeriod:  getDurationEnv("REGISTRY_WS_PING_PERIOD", constants.DefaultWebSocketPingPeriod),
		WebSocketMaxMsgSize:  getInt64Env("REGISTRY_WS_MAX_MSG_SIZE", constants.DefaultWebSocketMaxMsgSize),
		WebSocketSendBufSize: getIntEnv("REGISTRY_WS_SEND_BUF_SIZE", constants.DefaultWebSocketSendBufSize),
		WebSocketMaxSessions: getIntEnv("REGISTRY_WS_MAX_SESSIONS", constants.DefaultWebSocketMaxSessions),

		CircuitBreakerThreshold: int32(getIntEnv("REGISTRY_CB_THRESHOLD", constants.DefaultCircuitBreakerThreshold)),
		CircuitBreakerTimeout:   getDurationEnv("REGISTRY_CB_TIMEOUT", constants.DefaultCircuitBreakerTimeout),
		CircuitBreakerReset:     getDurationEnv("REGISTRY_CB_RESET", constants.DefaultCircuitBreakerReset),
	}

	if cfg.WebSocketPingPeriod >= cfg.WebSocketPongWait {
		return RegistryConfig{}, fmt.Errorf("REGISTRY_WS_PING_PERIOD (%v) must be shorter than REGISTRY_WS_PONG_WAIT (%v)", cfg.WebSocketPingPeriod, cfg.WebSocketPongWait)
	}

	return cfg, nil
}

func LoadMigrateConfig() (MigrateConfig, error) {
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return MigrateConfig{}, err
	}
	return MigrateConfig{DatabaseURL: databaseURL}, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("got %d bytes", len(secret)))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s is not set", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return fallback
	}
	return i
}

func getInt64Env(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return fallback
	}
	return i
}
