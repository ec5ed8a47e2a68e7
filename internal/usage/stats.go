package usage

import (
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// AlertLevel grades daily usage against the daily limit
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertWarning
	AlertCritical
)

func (l AlertLevel) String() string {
	switch l {
	case AlertWarning:
		return "warning"
	case AlertCritical:
		return "critical"
	default:
		return "none"
	}
}

// AlertFor grades today's real (non-cache) requests: at least 95% of the
// limit is critical, at least 80% a warning.
func AlertFor(realRequests, dailyLimit int) AlertLevel {
	if dailyLimit <= 0 {
		return AlertNone
	}
	percent := float64(realRequests) / float64(dailyLimit) * 100
	switch {
	case percent >= 95:
		return AlertCritical
	case percent >= 80:
		return AlertWarning
	default:
		return AlertNone
	}
}

// DailyStats summarizes one UTC calendar day
type DailyStats struct {
	Date            string `json:"fecha"`
	TotalRequests   int    `json:"total_requests"`
	RealRequests    int    `json:"requests_reales"`
	CacheRequests   int    `json:"requests_cache"`
	AvgLatencyMS    int64  `json:"tiempo_promedio_ms"`
	EstimatedTokens int    `json:"tokens_estimados"`
}

// MonthStats summarizes the last 30 days
type MonthStats struct {
	TotalRequests       int     `json:"total_requests"`
	RealRequests        int     `json:"requests_reales"`
	CacheRequests       int     `json:"requests_cache"`
	CachePercent        float64 `json:"porcentaje_cache"`
	AvgLatencyMS        int64   `json:"tiempo_promedio_ms"`
	DailyLimitPercent   float64 `json:"porcentaje_limite_diario"`
	MonthlyLimitPercent float64 `json:"porcentaje_limite_mensual"`
}

// KindStats summarizes one request kind
type KindStats struct {
	Total     int     `json:"total"`
	Cache     int     `json:"cache"`
	API       int     `json:"api"`
	CacheRate float64 `json:"tasa_cache"`
}

// StatsToday summarizes the current UTC day
func (m *Monitor) StatsToday() DailyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dayStatsLocked(m.now().UTC())
}

// StatsMonth summarizes the last 30 days
func (m *Monitor) StatsMonth() MonthStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	return m.monthStatsLocked(now, m.dayStatsLocked(now))
}

// StatsByKind groups the ledger by request kind
func (m *Monitor) StatsByKind() map[domain.RequestKind]KindStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[domain.RequestKind]KindStats)
	for _, r := range m.records {
		s := out[r.Kind]
		s.Total++
		if r.CacheHit {
			s.Cache++
		} else {
			s.API++
		}
		out[r.Kind] = s
	}
	for kind, s := range out {
		s.CacheRate = round(float64(s.Cache)/float64(s.Total)*100, 1)
		out[kind] = s
	}
	return out
}

func (m *Monitor) dayStatsLocked(now time.Time) DailyStats {
	date := now.Format(time.DateOnly)
	s := DailyStats{Date: date}

	var latency int64
	for _, r := range m.records {
		if r.Timestamp.UTC().Format(time.DateOnly) != date {
			continue
		}
		s.TotalRequests++
		if r.CacheHit {
			s.CacheRequests++
		} else {
			s.RealRequests++
		}
		latency += r.LatencyMS
		s.EstimatedTokens += r.EstimatedTokens
	}
	if s.TotalRequests > 0 {
		s.AvgLatencyMS = int64(round(float64(latency)/float64(s.TotalRequests), 0))
	}
	return s
}

func (m *Monitor) monthStatsLocked(now time.Time, today DailyStats) MonthStats {
	cutoff := now.Add(-retention)
	var s MonthStats
	var latency int64
	for _, r := range m.records {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		s.TotalRequests++
		if r.CacheHit {
			s.CacheRequests++
		} else {
			s.RealRequests++
		}
		latency += r.LatencyMS
	}
	if s.TotalRequests > 0 {
		s.CachePercent = round(float64(s.CacheRequests)/float64(s.TotalRequests)*100, 2)
		s.AvgLatencyMS = int64(round(float64(latency)/float64(s.TotalRequests), 0))
	}
	s.DailyLimitPercent = round(float64(today.RealRequests)/float64(m.cfg.DailyLimit)*100, 2)
	s.MonthlyLimitPercent = round(float64(s.RealRequests)/float64(m.cfg.MonthlyLimit)*100, 2)
	return s
}

// EstimateChatTokens approximates the cost of a chat turn by its length in
// characters.
func EstimateChatTokens(message, reply string) int {
	return len([]rune(message)) + len([]rune(reply))
}

// EstimateQuestionTokens approximates the cost of a question batch
func EstimateQuestionTokens(count int) int {
	return count * 200
}

// Fixed estimates for the other request kinds
const (
	CodeValidationTokens = 500
	ExplainConceptTokens = 300
)
