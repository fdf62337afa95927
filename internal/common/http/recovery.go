package http

import (
	"net/http"
	"runtime/debug"

	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/httpmetrics"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope carrying the
// request's trace id.
func RecoveryMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				traceID := getTraceIDFromContext(r.Context())
				log.WithFields(r.Context(), logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"action": "panic_recovered",
				}).Criticalf("panic recovered: %v\n%s", rec, debug.Stack())
				metrics.PanicsRecoveredTotal.WithLabelValues(httpmetrics.NormalizePath(r.URL.Path)).Inc()

				WriteErrorEnvelope(w, http.StatusInternalServerError, commonerrors.ErrInternalError.Code(), "internal server error", nil, traceID)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
