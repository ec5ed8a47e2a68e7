package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// FeedbackStore is the durable tier for validation feedback
type FeedbackStore interface {
	// FindFeedback returns the newest record for a code hash and exercise,
	// or domain.ErrFeedbackNotFound.
	FindFeedback(ctx context.Context, codeHash string, exerciseID int64, kind string) (*domain.FeedbackRecord, error)

	// SaveFeedback appends a record
	SaveFeedback(ctx context.Context, record *domain.FeedbackRecord) error
}

// Source tells which tier served a lookup
type Source string

const (
	SourceNone    Source = ""
	SourceMemory  Source = "memory"
	SourceDurable Source = "durable"
)

// Tiered combines the memory tier with the durable feedback store. The
// durable store is authoritative; memory is a read-through accelerator and a
// durable hit is promoted into it. Writes land in memory first and then in the
// durable store, whose failures are logged and swallowed.
type Tiered struct {
	memory *Memory
	store  FeedbackStore
	model  string
	logger *slog.Logger
}

// NewTiered creates a two-tier code cache. store may be nil, in which case
// only the memory tier is used.
func NewTiered(memory *Memory, store FeedbackStore, model string, logger *slog.Logger) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tiered{memory: memory, store: store, model: model, logger: logger}
}

// Memory returns the memory tier
func (t *Tiered) Memory() *Memory {
	return t.memory
}

// LookupCode checks memory, then the durable store. Store failures are
// treated as misses.
func (t *Tiered) LookupCode(ctx context.Context, req domain.CodeValidationRequest) (domain.CodeValidationResult, Source, bool) {
	if res, ok := t.memory.LookupCode(req.Code, req.ExerciseID); ok {
		return res, SourceMemory, true
	}
	if t.store == nil {
		return domain.CodeValidationResult{}, SourceNone, false
	}

	record, err := t.store.FindFeedback(ctx, CodeHash(req.Code), req.ExerciseID, domain.FeedbackKindCodeValidation)
	if err != nil {
		if !errors.Is(err, domain.ErrFeedbackNotFound) {
			t.logger.Warn("durable cache lookup failed", "exercise_id", req.ExerciseID, "error", err)
		}
		return domain.CodeValidationResult{}, SourceNone, false
	}

	res, err := record.Result()
	if err != nil {
		t.logger.Warn("durable cache record unreadable", "record_id", record.ID, "error", err)
		return domain.CodeValidationResult{}, SourceNone, false
	}

	t.memory.StoreCode(req.Code, req.ExerciseID, req.UserID, res)
	return res, SourceDurable, true
}

// StoreCode writes a fresh verdict to both tiers
func (t *Tiered) StoreCode(ctx context.Context, req domain.CodeValidationRequest, res domain.CodeValidationResult) {
	t.memory.StoreCode(req.Code, req.ExerciseID, req.UserID, res)
	if t.store == nil {
		return
	}

	hash := CodeHash(req.Code)
	raw, err := json.Marshal(domain.FeedbackContext{
		ExerciseID:  req.ExerciseID,
		CodeHash:    hash,
		Code:        req.Code,
		Language:    req.Language,
		Result:      res.Result,
		Points:      res.Points,
		Errors:      res.Errors,
		PassedCases: res.PassedCases,
		TotalCases:  res.TotalCases,
	})
	if err != nil {
		t.logger.Warn("encode feedback context failed", "error", err)
		return
	}

	record := &domain.FeedbackRecord{
		UserID:        req.UserID,
		Kind:          domain.FeedbackKindCodeValidation,
		ContentHash:   hash,
		ExerciseID:    req.ExerciseID,
		RawContext:    raw,
		GeneratedText: res.Feedback,
		GeneratedByAI: true,
		ModelName:     t.model,
		CreatedAt:     time.Now().UTC(),
	}
	if err := t.store.SaveFeedback(ctx, record); err != nil {
		t.logger.Warn("durable cache write failed", "exercise_id", req.ExerciseID, "error", err)
	}
}
