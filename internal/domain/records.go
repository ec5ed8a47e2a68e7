package domain

import (
	"encoding/json"
	"time"
)

// FeedbackRecord is the durable, append-only record of a validation verdict.
// There is one per unique (exercise, normalized code hash).
type FeedbackRecord struct {
	ID            int64
	UserID        int64
	Kind          string
	ContentHash   string
	ExerciseID    int64
	RawContext    json.RawMessage
	GeneratedText string
	GeneratedByAI bool
	ModelName     string
	CreatedAt     time.Time
}

// FeedbackContext is the JSON document stored in FeedbackRecord.RawContext
type FeedbackContext struct {
	ExerciseID  int64    `json:"ejercicio_id"`
	CodeHash    string   `json:"codigo_hash"`
	Code        string   `json:"codigo_enviado"`
	Language    string   `json:"lenguaje"`
	Result      Verdict  `json:"resultado"`
	Points      int      `json:"puntos"`
	Errors      []string `json:"errores_encontrados"`
	PassedCases int      `json:"casos_prueba_pasados"`
	TotalCases  int      `json:"casos_prueba_totales"`
}

// Result rebuilds the learner-facing result stored in the record
func (r *FeedbackRecord) Result() (CodeValidationResult, error) {
	var fc FeedbackContext
	if len(r.RawContext) > 0 {
		if err := json.Unmarshal(r.RawContext, &fc); err != nil {
			return CodeValidationResult{}, err
		}
	}
	res := CodeValidationResult{
		Result:      fc.Result,
		Points:      fc.Points,
		Feedback:    r.GeneratedText,
		Errors:      fc.Errors,
		PassedCases: fc.PassedCases,
		TotalCases:  fc.TotalCases,
	}
	if res.Result == "" {
		res.Result = VerdictCorrect
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	return res, nil
}

// StoredQuestion is a persisted question with its options in display order
type StoredQuestion struct {
	ID         int64
	SubtopicID int64
	Question   GeneratedQuestion
	CreatedAt  time.Time
}

// UsageRecord is one model-backed request, whether served from cache or not
type UsageRecord struct {
	Timestamp       time.Time   `json:"timestamp"`
	Kind            RequestKind `json:"kind"`
	EstimatedTokens int         `json:"estimated_tokens"`
	CacheHit        bool        `json:"cache_hit"`
	LatencyMS       int64       `json:"latency_ms"`
	UserID          int64       `json:"user_id,omitempty"`
	Model           string      `json:"model,omitempty"`
}

// UsageTotal aggregates durable usage records for one request kind
type UsageTotal struct {
	Kind            RequestKind `json:"kind"`
	Requests        int         `json:"requests"`
	CacheHits       int         `json:"cache_hits"`
	EstimatedTokens int         `json:"estimated_tokens"`
	AvgLatencyMS    float64     `json:"avg_latency_ms"`
}
