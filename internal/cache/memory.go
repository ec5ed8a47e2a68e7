package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

const day = 24 * time.Hour

type entry struct {
	result    *domain.CodeValidationResult
	questions []domain.GeneratedQuestion
	createdAt time.Time
}

// Stats describes the memory tier
type Stats struct {
	TotalEntries    int `json:"total_entradas"`
	CodeEntries     int `json:"code_entries"`
	QuestionEntries int `json:"question_entries"`
	ExpiredEntries  int `json:"expired_entries"`
	TTLDays         int `json:"ttl_dias"`
}

// Memory is the in-process TTL cache. Expired entries are reported as misses
// but stay in the map until Sweep runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttlDays int
	now     func() time.Time
	logger  *slog.Logger
}

// MemoryOption configures a Memory cache
type MemoryOption func(*Memory)

// WithClock overrides the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(m *Memory) { m.logger = logger }
}

// NewMemory creates a memory cache whose entries live ttlDays days
func NewMemory(ttlDays int, opts ...MemoryOption) *Memory {
	if ttlDays <= 0 {
		ttlDays = 7
	}
	m := &Memory{
		entries: make(map[string]*entry),
		ttlDays: ttlDays,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// expired reports whether an entry is older than the TTL, measured in
// fractional days.
func (m *Memory) expired(e *entry, now time.Time) bool {
	return now.Sub(e.createdAt) > time.Duration(m.ttlDays)*day
}

// LookupCode returns the cached result for a submission
func (m *Memory) LookupCode(code string, exerciseID int64) (domain.CodeValidationResult, bool) {
	key := CodeKey(code, exerciseID)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.result == nil {
		return domain.CodeValidationResult{}, false
	}
	now := m.now()
	if m.expired(e, now) {
		return domain.CodeValidationResult{}, false
	}
	m.logger.Debug("code cache hit", "key", key, "age_days", int(now.Sub(e.createdAt)/day))
	return *e.result, true
}

// StoreCode caches the result for a submission. The user is recorded for
// logging only; results are shared across learners.
func (m *Memory) StoreCode(code string, exerciseID, userID int64, result domain.CodeValidationResult) {
	key := CodeKey(code, exerciseID)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &entry{result: &result, createdAt: m.now()}
	m.logger.Debug("code cached", "key", key, "user_id", userID)
}

// LookupQuestions returns the cached pool for a subtopic and difficulty when
// it holds at least count questions. The returned slice is a copy.
func (m *Memory) LookupQuestions(subtopicID int64, count int, difficulty domain.Difficulty) ([]domain.GeneratedQuestion, bool) {
	key := QuestionsKey(subtopicID, difficulty)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || m.expired(e, m.now()) || len(e.questions) < count {
		return nil, false
	}
	out := make([]domain.GeneratedQuestion, len(e.questions))
	copy(out, e.questions)
	return out, true
}

// StoreQuestions appends questions to the pool keyed by the subtopic and the
// first question's difficulty, and restarts the pool's TTL. An expired pool
// is replaced instead of extended.
func (m *Memory) StoreQuestions(subtopicID int64, questions []domain.GeneratedQuestion) {
	if len(questions) == 0 {
		return
	}
	key := QuestionsKey(subtopicID, questions[0].Difficulty)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var pool []domain.GeneratedQuestion
	if e, ok := m.entries[key]; ok && !m.expired(e, now) {
		pool = append(pool, e.questions...)
	}
	pool = append(pool, questions...)
	m.entries[key] = &entry{questions: pool, createdAt: now}
}

// Sweep removes expired entries and returns how many were removed
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns entry counts for the memory tier
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := Stats{TotalEntries: len(m.entries), TTLDays: m.ttlDays}
	for key, e := range m.entries {
		if strings.HasPrefix(key, "questions_") {
			s.QuestionEntries++
		} else {
			s.CodeEntries++
		}
		if m.expired(e, now) {
			s.ExpiredEntries++
		}
	}
	return s
}

// RunJanitor sweeps on every interval until ctx is cancelled
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Sweep(); removed > 0 {
				m.logger.Info("cache sweep", "removed", removed)
			}
		}
	}
}
