// Package quota enforces the generative model's per-minute and per-day
// request limits for one process.
package quota

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour

	warnPercent     = 80.0
	criticalPercent = 95.0
)

// ErrQuotaExceeded is matched by every *ExceededError
var ErrQuotaExceeded = errors.New("quota exceeded")

// Reason names the window that denied a request
type Reason string

const (
	ReasonMinute Reason = "minute"
	ReasonDaily  Reason = "daily"
)

// Decision is the outcome of an admission check
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
	Reason            Reason
	Limit             int
	Current           int
}

// Err converts a denial into an *ExceededError. It returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &ExceededError{Reason: d.Reason, RetryAfterSeconds: d.RetryAfterSeconds, Limit: d.Limit, Current: d.Current}
}

// ExceededError is a structured quota denial
type ExceededError struct {
	Reason            Reason
	RetryAfterSeconds int
	Limit             int
	Current           int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded (%d/%d), retry after %ds", e.Reason, e.Current, e.Limit, e.RetryAfterSeconds)
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Stats is a snapshot of both windows
type Stats struct {
	RequestsLastMinute int     `json:"requests_last_minute"`
	RequestsToday      int     `json:"requests_today"`
	RPMLimit           int     `json:"rpm_limit"`
	DailyLimit         int     `json:"daily_limit"`
	RPMAvailable       int     `json:"rpm_available"`
	DailyAvailable     int     `json:"daily_available"`
	DailyUsagePercent  float64 `json:"daily_usage_percent"`
}

// Limiter is a sliding-window limiter over two windows. Timestamps are kept
// oldest first and pruned on every check.
type Limiter struct {
	mu         sync.Mutex
	minute     []time.Time
	day        []time.Time
	rpmLimit   int
	dailyLimit int
	logger     *slog.Logger
}

// NewLimiter creates a limiter. Non-positive limits fall back to the free
// tier defaults of 15 per minute and 1500 per day.
func NewLimiter(rpmLimit, dailyLimit int, logger *slog.Logger) *Limiter {
	if rpmLimit <= 0 {
		rpmLimit = 15
	}
	if dailyLimit <= 0 {
		dailyLimit = 1500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{rpmLimit: rpmLimit, dailyLimit: dailyLimit, logger: logger}
}

// Admit checks both windows at now and, when allowed, records now in both.
// The minute window is checked first.
func (l *Limiter) Admit(now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	if len(l.minute) >= l.rpmLimit {
		d := Decision{
			Reason:            ReasonMinute,
			RetryAfterSeconds: retryAfter(l.minute[0], now, minuteWindow),
			Limit:             l.rpmLimit,
			Current:           len(l.minute),
		}
		l.logger.Warn("minute quota reached", "limit", l.rpmLimit, "retry_after", d.RetryAfterSeconds)
		return d
	}

	if len(l.day) >= l.dailyLimit {
		d := Decision{
			Reason:            ReasonDaily,
			RetryAfterSeconds: retryAfter(l.day[0], now, dayWindow),
			Limit:             l.dailyLimit,
			Current:           len(l.day),
		}
		l.logger.Error("daily quota reached", "limit", l.dailyLimit, "retry_after", d.RetryAfterSeconds)
		return d
	}

	percent := l.dailyPercent()
	switch {
	case percent >= criticalPercent:
		l.logger.Error("daily quota critical", "usage_percent", round1(percent), "requests_today", len(l.day), "limit", l.dailyLimit)
	case percent >= warnPercent:
		l.logger.Warn("daily quota warning", "usage_percent", round1(percent), "requests_today", len(l.day), "limit", l.dailyLimit)
	}

	l.minute = append(l.minute, now)
	l.day = append(l.day, now)
	return Decision{Allowed: true, Limit: l.rpmLimit, Current: len(l.minute)}
}

// Stats returns usage of both windows at now
func (l *Limiter) Stats(now time.Time) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)
	return Stats{
		RequestsLastMinute: len(l.minute),
		RequestsToday:      len(l.day),
		RPMLimit:           l.rpmLimit,
		DailyLimit:         l.dailyLimit,
		RPMAvailable:       l.rpmLimit - len(l.minute),
		DailyAvailable:     l.dailyLimit - len(l.day),
		DailyUsagePercent:  math.Round(l.dailyPercent()*100) / 100,
	}
}

// Reset clears both windows
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minute = nil
	l.day = nil
}

// prune drops timestamps that are no longer strictly inside their window
func (l *Limiter) prune(now time.Time) {
	l.minute = dropOlder(l.minute, now, minuteWindow)
	l.day = dropOlder(l.day, now, dayWindow)
}

func (l *Limiter) dailyPercent() float64 {
	return float64(len(l.day)) / float64(l.dailyLimit) * 100
}

func dropOlder(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= window {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

// retryAfter is the whole number of seconds until the oldest timestamp
// leaves the window, at least one.
func retryAfter(oldest, now time.Time, window time.Duration) int {
	wait := window - now.Sub(oldest)
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
