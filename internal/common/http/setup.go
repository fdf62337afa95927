package http

import (
	"net/http"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
	"github.com/AlibekovAA/registration-board/internal/common/httpmetrics"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
)

// registryCSP allows the page's inline script and its websocket back to
// the same origin.
const registryCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self' ws: wss:; frame-ancestors 'none';"

type BaseHandlerConfig struct {
	AppName        string
	MaxRequestSize int64
	CSP            string
}

// BuildBaseHandler wraps handler in the shared middleware chain. Metrics sit
// innermost so they see the status the handler wrote.
func BuildBaseHandler(cfg BaseHandlerConfig, log *logger.Logger, handler http.Handler) http.Handler {
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = constants.DefaultMaxRequestSize
	}
	if cfg.CSP == "" {
		cfg.CSP = registryCSP
	}

	collector := httpmetrics.New(cfg.AppName)
	recovery := RecoveryMiddleware(log)
	maxRequestSize := MaxRequestSizeMiddleware(cfg.MaxRequestSize)
	csp := ContentSecurityPolicyMiddleware(cfg.CSP)

	return SecurityHeadersMiddleware(csp(TraceIDMiddleware(recovery(maxRequestSize(collector.Wrap(handler))))))
}
