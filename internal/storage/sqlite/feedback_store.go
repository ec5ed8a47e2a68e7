package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/sqlc-dev/pqtype"
)

// FindFeedback returns the record for a normalized code hash on an exercise.
func (s *Store) FindFeedback(ctx context.Context, codeHash string, exerciseID int64, kind string) (*domain.FeedbackRecord, error) {
	var (
		rec domain.FeedbackRecord
		raw pqtype.NullRawMessage
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, content_hash, exercise_id, raw_context,
			generated_text, generated_by_ai, model_name, created_at
		FROM feedback_records
		WHERE content_hash = ? AND exercise_id = ? AND kind = ?`,
		codeHash, exerciseID, kind,
	).Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.ContentHash, &rec.ExerciseID, &raw,
		&rec.GeneratedText, &rec.GeneratedByAI, &rec.ModelName, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFeedbackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	if raw.Valid {
		rec.RawContext = raw.RawMessage
	}
	return &rec, nil
}

// SaveFeedback appends a record. A second record for the same hash, exercise
// and kind is ignored.
func (s *Store) SaveFeedback(ctx context.Context, rec *domain.FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	raw := pqtype.NullRawMessage{RawMessage: rec.RawContext, Valid: len(rec.RawContext) > 0}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_records (user_id, kind, content_hash, exercise_id, raw_context,
			generated_text, generated_by_ai, model_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash, exercise_id, kind) DO NOTHING`,
		rec.UserID, rec.Kind, rec.ContentHash, rec.ExerciseID, raw,
		rec.GeneratedText, rec.GeneratedByAI, rec.ModelName, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}
