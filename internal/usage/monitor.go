// Package usage keeps a rolling ledger of generative model requests, derives
// usage statistics from it and raises alerts as the daily and monthly limits
// approach. It observes only; admission is enforced by package quota.
package usage

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

const retention = 30 * 24 * time.Hour

// Sink mirrors usage records to durable storage
type Sink interface {
	RecordUsage(ctx context.Context, record domain.UsageRecord) error
}

// Observer receives every recorded entry, e.g. for metrics
type Observer interface {
	ObserveUsage(kind domain.RequestKind, cacheHit bool, latency time.Duration, tokens int)
}

// Entry describes one request to record
type Entry struct {
	Kind            domain.RequestKind
	EstimatedTokens int
	CacheHit        bool
	Latency         time.Duration
	UserID          int64
}

// Config holds the limits the monitor reports against
type Config struct {
	DailyLimit   int
	MonthlyLimit int
	Model        string
	SinkTimeout  time.Duration
}

// Monitor is the in-memory usage ledger
type Monitor struct {
	mu       sync.Mutex
	records  []domain.UsageRecord
	cfg      Config
	sink     Sink
	observer Observer
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Monitor
type Option func(*Monitor)

// WithSink sets the durable mirror
func WithSink(s Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithObserver sets a per-entry observer
func WithObserver(o Observer) Option {
	return func(m *Monitor) { m.observer = o }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// NewMonitor creates a usage monitor
func NewMonitor(cfg Config, opts ...Option) *Monitor {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = 1500
	}
	if cfg.MonthlyLimit <= 0 {
		cfg.MonthlyLimit = 45000
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}
	m := &Monitor{
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record appends an entry, prunes the ledger, evaluates alerts and mirrors
// the entry to the sink. Sink failures are logged, never returned.
func (m *Monitor) Record(ctx context.Context, e Entry) {
	rec := domain.UsageRecord{
		Timestamp:       m.now().UTC(),
		Kind:            e.Kind,
		EstimatedTokens: e.EstimatedTokens,
		CacheHit:        e.CacheHit,
		LatencyMS:       e.Latency.Milliseconds(),
		UserID:          e.UserID,
		Model:           m.cfg.Model,
	}

	m.mu.Lock()
	m.records = append(m.records, rec)
	m.pruneLocked(rec.Timestamp)
	today := m.dayStatsLocked(rec.Timestamp)
	month := m.monthStatsLocked(rec.Timestamp, today)
	m.mu.Unlock()

	m.alert(today, month)

	if m.observer != nil {
		m.observer.ObserveUsage(e.Kind, e.CacheHit, e.Latency, e.EstimatedTokens)
	}

	m.logger.Debug("usage recorded",
		"kind", e.Kind,
		"cache_hit", e.CacheHit,
		"latency_ms", rec.LatencyMS,
		"tokens", e.EstimatedTokens)

	if m.sink == nil {
		return
	}
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.SinkTimeout)
	defer cancel()
	if err := m.sink.RecordUsage(sinkCtx, rec); err != nil {
		m.logger.Warn("usage mirror write failed", "kind", e.Kind, "error", err)
	}
}

func (m *Monitor) alert(today DailyStats, month MonthStats) {
	switch AlertFor(today.RealRequests, m.cfg.DailyLimit) {
	case AlertCritical:
		m.logger.Error("daily model usage critical",
			"real_requests", today.RealRequests,
			"cache_requests", today.CacheRequests,
			"daily_limit", m.cfg.DailyLimit,
			"date", today.Date)
	case AlertWarning:
		m.logger.Warn("daily model usage high",
			"real_requests", today.RealRequests,
			"daily_limit", m.cfg.DailyLimit)
	}

	if month.MonthlyLimitPercent >= 90 {
		m.logger.Error("monthly model usage critical",
			"usage_percent", round(month.MonthlyLimitPercent, 1),
			"monthly_limit", m.cfg.MonthlyLimit)
	}
}

func (m *Monitor) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for i < len(m.records) && m.records[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		m.records = append(m.records[:0], m.records[i:]...)
	}
}

// Reset clears the ledger
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

// Export returns a copy of the ledger
func (m *Monitor) Export() []domain.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.UsageRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Limits returns the configured daily and monthly limits
func (m *Monitor) Limits() (daily, monthly int) {
	return m.cfg.DailyLimit, m.cfg.MonthlyLimit
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
