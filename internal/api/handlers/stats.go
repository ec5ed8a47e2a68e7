package handlers

import (
	"net/http"
	"time"

	"github.com/felixgeelhaar/lulu/internal/cache"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/quota"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// UsageSource reports usage statistics
type UsageSource interface {
	StatsToday() usage.DailyStats
	StatsMonth() usage.MonthStats
	StatsByKind() map[domain.RequestKind]usage.KindStats
}

// QuotaSource reports the limiter windows
type QuotaSource interface {
	Stats(now time.Time) quota.Stats
}

// CacheSource reports the memory cache tier
type CacheSource interface {
	Stats() cache.Stats
}

// StatsResponse is the body of GET /api/v1/gemini/stats
type StatsResponse struct {
	Status      string                                 `json:"status"`
	Service     string                                 `json:"service"`
	Today       usage.DailyStats                       `json:"hoy"`
	Month       usage.MonthStats                       `json:"mes"`
	ByKind      map[domain.RequestKind]usage.KindStats `json:"por_tipo"`
	RateLimiter quota.Stats                            `json:"rate_limiter"`
	Cache       *cache.Stats                           `json:"cache,omitempty"`
}

// StatsHandler serves usage statistics to administrators
type StatsHandler struct {
	usage UsageSource
	quota QuotaSource
	cache CacheSource
	now   func() time.Time
}

// NewStatsHandler creates a stats handler. cache may be nil.
func NewStatsHandler(u UsageSource, q QuotaSource, c CacheSource) *StatsHandler {
	return &StatsHandler{usage: u, quota: q, cache: c, now: time.Now}
}

// Get handles GET /api/v1/gemini/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Status:      "active",
		Service:     "gemini-integration",
		Today:       h.usage.StatsToday(),
		Month:       h.usage.StatsMonth(),
		ByKind:      h.usage.StatsByKind(),
		RateLimiter: h.quota.Stats(h.now()),
	}
	if h.cache != nil {
		s := h.cache.Stats()
		resp.Cache = &s
	}
	WriteSuccess(w, resp)
}
