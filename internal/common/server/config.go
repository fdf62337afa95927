package server

import (
	"net/http"
	"time"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
)

// writeHeadroom is what a handler needs after its request deadline to
// write the timeout envelope.
const writeHeadroom = 5 * time.Second

type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// NewServerConfig derives server timeouts from the per-request store
// timeout so a slow store call always ends in a response. Websocket
// sessions set their own deadlines after the upgrade.
func NewServerConfig(port string, requestTimeout time.Duration) ServerConfig {
	cfg := ServerConfig{
		Addr:              ":" + port,
		ReadHeaderTimeout: constants.ServerReadHeaderTimeout,
		ReadTimeout:       constants.ServerReadTimeout,
		WriteTimeout:      constants.ServerWriteTimeout,
		IdleTimeout:       constants.ServerIdleTimeout,
	}
	if floor := requestTimeout + writeHeadroom; cfg.WriteTimeout < floor {
		cfg.WriteTimeout = floor
	}
	return cfg
}

func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
