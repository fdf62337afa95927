package httpmetrics

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
)

type Collector struct {
	prefix string
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the collector.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func New(prefix string) *Collector {
	return &Collector{
		prefix: prefix,
	}
}

func (c *Collector) Wrap(next http.Handler) http.Handler {
	var promRequestsTotal *prometheus.CounterVec
	var promRequestsInFlight prometheus.Gauge
	var promRequestDuration *prometheus.HistogramVec

	if c.prefix == "registry" {
		promRequestsTotal = metrics.RegistryRequestsTotal
		promRequestsInFlight = metrics.RegistryRequestsInFlight
		promRequestDuration = metrics.RegistryRequestDurationSeconds
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		method := r.Method
		path := NormalizePath(r.URL.Path)

		if promRequestsTotal != nil {
			promRequestsTotal.WithLabelValues(method, path).Inc()
		}
		if promRequestsInFlight != nil {
			promRequestsInFlight.Inc()
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if promRequestsInFlight != nil {
				promRequestsInFlight.Dec()
			}
			if promRequestDuration != nil {
				statusClass := fmt.Sprintf("%dxx", rec.status/100)
				promRequestDuration.WithLabelValues(method, path, statusClass).Observe(time.Since(start).Seconds())
			}
		}()

		next.ServeHTTP(rec, r)
	})
}
