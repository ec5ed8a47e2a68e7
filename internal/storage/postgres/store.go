package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Store = (*Store)(nil)

// Store is the PostgreSQL-backed record store
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore creates a store on a migrated database
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Ping verifies the pool
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SaveTopic inserts a topic, or upserts it when ID is set
func (s *Store) SaveTopic(ctx context.Context, topic *domain.Topic) error {
	if topic.ID > 0 {
		query := `
			INSERT INTO topics (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		`
		if _, err := s.pool.Exec(ctx, query, topic.ID, topic.Name); err != nil {
			return fmt.Errorf("upsert topic: %w", err)
		}
		return nil
	}

	err := s.pool.QueryRow(ctx, "INSERT INTO topics (name) VALUES ($1) RETURNING id", topic.Name).Scan(&topic.ID)
	if err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

// SaveSubtopic inserts a subtopic, or upserts it when ID is set
func (s *Store) SaveSubtopic(ctx context.Context, sub *domain.Subtopic) error {
	if sub.ID > 0 {
		query := `
			INSERT INTO subtopics (id, topic_id, name, description, detail)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				topic_id = EXCLUDED.topic_id,
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				detail = EXCLUDED.detail
		`
		if _, err := s.pool.Exec(ctx, query, sub.ID, sub.TopicID, sub.Name, sub.Description, sub.Detail); err != nil {
			return fmt.Errorf("upsert subtopic: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO subtopics (topic_id, name, description, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := s.pool.QueryRow(ctx, query, sub.TopicID, sub.Name, sub.Description, sub.Detail).Scan(&sub.ID); err != nil {
		return fmt.Errorf("insert subtopic: %w", err)
	}
	return nil
}

// GetSubtopic loads a subtopic with its topic
func (s *Store) GetSubtopic(ctx context.Context, id int64) (*domain.Subtopic, error) {
	query := `
		SELECT s.id, s.topic_id, s.name, s.description, s.detail, t.id, t.name
		FROM subtopics s
		JOIN topics t ON t.id = s.topic_id
		WHERE s.id = $1
	`
	sub := &domain.Subtopic{Topic: &domain.Topic{}}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.TopicID, &sub.Name, &sub.Description, &sub.Detail, &sub.Topic.ID, &sub.Topic.Name,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubtopicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subtopic: %w", err)
	}
	return sub, nil
}

// SaveQuestions persists generated questions and their options in one
// transaction. Options are ordered from 1.
func (s *Store) SaveQuestions(ctx context.Context, subtopicID int64, questions []domain.GeneratedQuestion) ([]domain.StoredQuestion, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := s.now().UTC()
	stored := make([]domain.StoredQuestion, 0, len(questions))
	for _, q := range questions {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO quiz_questions (subtopic_id, text, difficulty, question_type,
				correct_feedback, incorrect_feedback, detailed_explanation, points,
				generated_by_ai, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
			RETURNING id`,
			subtopicID, q.Text, string(q.Difficulty), domain.QuestionTypeMultipleChoice,
			q.CorrectFeedback, q.IncorrectFeedback, q.DetailedExplanation, q.Points, now,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}

		batch := &pgx.Batch{}
		for j, o := range q.Options {
			batch.Queue(`
				INSERT INTO answer_options (question_id, text, is_correct, explanation, orden)
				VALUES ($1, $2, $3, $4, $5)`,
				id, o.Text, o.IsCorrect, o.Explanation, j+1)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return nil, fmt.Errorf("insert options: %w", err)
			}
		}

		stored = append(stored, domain.StoredQuestion{ID: id, SubtopicID: subtopicID, Question: q, CreatedAt: now})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit questions: %w", err)
	}
	return stored, nil
}

// ListQuestions returns the stored questions of a subtopic, oldest first
func (s *Store) ListQuestions(ctx context.Context, subtopicID int64) ([]domain.StoredQuestion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id, q.text, q.difficulty, q.correct_feedback, q.incorrect_feedback,
			q.detailed_explanation, q.points, q.created_at,
			o.text, o.is_correct, o.explanation
		FROM quiz_questions q
		LEFT JOIN answer_options o ON o.question_id = q.id
		WHERE q.subtopic_id = $1
		ORDER BY q.id, o.orden`, subtopicID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := []domain.StoredQuestion{}
	for rows.Next() {
		var (
			sq         domain.StoredQuestion
			difficulty string
			optText    *string
			optCorrect *bool
			optExpl    *string
		)
		if err := rows.Scan(&sq.ID, &sq.Question.Text, &difficulty, &sq.Question.CorrectFeedback,
			&sq.Question.IncorrectFeedback, &sq.Question.DetailedExplanation, &sq.Question.Points,
			&sq.CreatedAt, &optText, &optCorrect, &optExpl); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}

		if n := len(out); n == 0 || out[n-1].ID != sq.ID {
			sq.SubtopicID = subtopicID
			sq.Question.Difficulty = domain.Difficulty(difficulty)
			sq.Question.Options = []domain.AnswerOption{}
			out = append(out, sq)
		}
		if optText != nil {
			last := &out[len(out)-1]
			opt := domain.AnswerOption{Text: *optText}
			if optCorrect != nil {
				opt.IsCorrect = *optCorrect
			}
			if optExpl != nil {
				opt.Explanation = *optExpl
			}
			last.Question.Options = append(last.Question.Options, opt)
		}
	}
	return out, rows.Err()
}

// FindFeedback returns the record for a code hash on an exercise
func (s *Store) FindFeedback(ctx context.Context, codeHash string, exerciseID int64, kind string) (*domain.FeedbackRecord, error) {
	query := `
		SELECT id, user_id, kind, content_hash, exercise_id, raw_context,
			generated_text, generated_by_ai, model_name, created_at
		FROM feedback_records
		WHERE content_hash = $1 AND exercise_id = $2 AND kind = $3
	`
	var (
		rec domain.FeedbackRecord
		raw []byte
	)
	err := s.pool.QueryRow(ctx, query, codeHash, exerciseID, kind).Scan(
		&rec.ID, &rec.UserID, &rec.Kind, &rec.ContentHash, &rec.ExerciseID, &raw,
		&rec.GeneratedText, &rec.GeneratedByAI, &rec.ModelName, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFeedbackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	rec.RawContext = raw
	return &rec, nil
}

// SaveFeedback appends a record; duplicates of (hash, exercise, kind) are ignored
func (s *Store) SaveFeedback(ctx context.Context, rec *domain.FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	var raw []byte
	if len(rec.RawContext) > 0 {
		raw = rec.RawContext
	}

	query := `
		INSERT INTO feedback_records (user_id, kind, content_hash, exercise_id, raw_context,
			generated_text, generated_by_ai, model_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (content_hash, exercise_id, kind) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		rec.UserID, rec.Kind, rec.ContentHash, rec.ExerciseID, raw,
		rec.GeneratedText, rec.GeneratedByAI, rec.ModelName, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// RecordUsage appends one usage record
func (s *Store) RecordUsage(ctx context.Context, rec domain.UsageRecord) error {
	var userID *int64
	if rec.UserID > 0 {
		userID = &rec.UserID
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	query := `
		INSERT INTO usage_logs (kind, estimated_tokens, cache_hit, latency_ms, user_id, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		string(rec.Kind), rec.EstimatedTokens, rec.CacheHit, rec.LatencyMS, userID, rec.Model, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

// UsageTotals aggregates usage at or after since, per request kind
func (s *Store) UsageTotals(ctx context.Context, since time.Time) ([]domain.UsageTotal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT kind, COUNT(*)::int,
			COUNT(*) FILTER (WHERE cache_hit)::int,
			COALESCE(SUM(estimated_tokens), 0)::int,
			COALESCE(AVG(latency_ms), 0)::float8
		FROM usage_logs
		WHERE created_at >= $1
		GROUP BY kind
		ORDER BY kind`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query usage totals: %w", err)
	}
	defer rows.Close()

	var out []domain.UsageTotal
	for rows.Next() {
		var (
			t    domain.UsageTotal
			kind string
		)
		if err := rows.Scan(&kind, &t.Requests, &t.CacheHits, &t.EstimatedTokens, &t.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("scan usage total: %w", err)
		}
		t.Kind = domain.RequestKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}
