package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
	"github.com/AlibekovAA/registration-board/internal/common/httpmetrics"
	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
)

type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	cleanup  *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		cleanup:  time.NewTicker(constants.RateLimitCleanupInterval),
		stop:     make(chan struct{}),
	}

	go rl.cleanupLimiters()

	return rl
}

func (rl *RateLimiter) cleanupLimiters() {
	for {
		select {
		case <-rl.stop:
			rl.cleanup.Stop()
			return
		case <-rl.cleanup.C:
			rl.mu.Lock()
			for key, limiter := range rl.limiters {
				if limiter.Tokens() >= float64(rl.burst) {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		limiter, exists = rl.limiters[key]
		if !exists {
			limiter = rate.NewLimiter(rl.rate, rl.burst)
			rl.limiters[key] = limiter
		}
		rl.mu.Unlock()
	}

	return limiter
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// MethodRateLimiter applies a strict budget to writes and a loose one to
// reads, keyed by client IP.
type MethodRateLimiter struct {
	writeLimiter *RateLimiter
	readLimiter  *RateLimiter
}

func NewMethodRateLimiter() *MethodRateLimiter {
	return &MethodRateLimiter{
		writeLimiter: NewRateLimiter(constants.RateLimitWriteRequestsPerSecond, constants.RateLimitWriteBurst),
		readLimiter:  NewRateLimiter(constants.RateLimitReadRequestsPerSecond, constants.RateLimitReadBurst),
	}
}

func (mrl *MethodRateLimiter) Stop() {
	mrl.writeLimiter.Stop()
	mrl.readLimiter.Stop()
}

func (mrl *MethodRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter, limiterType := mrl.readLimiter, "read"
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			limiter, limiterType = mrl.writeLimiter, "write"
		}

		if !limiter.Allow(GetClientIP(r)) {
			metrics.RateLimitBlocked.WithLabelValues(httpmetrics.NormalizePath(r.URL.Path), limiterType).Inc()
			WriteErrorEnvelope(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded", nil, "")
			return
		}

		next.ServeHTTP(w, r)
	})
}
