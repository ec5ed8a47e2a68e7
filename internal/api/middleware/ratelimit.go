package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
)

// RateLimit limits requests per client IP with a token bucket
type RateLimit struct {
	limiter    ratelimit.RateLimiter
	retryAfter time.Duration
	logger     *slog.Logger
}

// NewRateLimit allows requestsPerMinute per client, refilled every minute.
// Non-positive values fall back to 100.
func NewRateLimit(requestsPerMinute int, logger *slog.Logger) *RateLimit {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimit{
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     requestsPerMinute,
			Burst:    requestsPerMinute,
			Interval: time.Minute,
		}),
		retryAfter: time.Minute,
		logger:     logger,
	}
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getClientIP(r)

		if !rl.limiter.Allow(r.Context(), key) {
			rl.logger.Warn("rate limit exceeded",
				"client", key,
				"path", r.URL.Path,
				"request_id", GetRequestID(r.Context()),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.retryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Demasiadas solicitudes. Intenta de nuevo más tarde.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close releases the limiter
func (rl *RateLimit) Close() error {
	return rl.limiter.Close()
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
