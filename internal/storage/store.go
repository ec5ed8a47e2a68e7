package storage

import (
	"context"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// Store is the durable record store. Lookups return the domain not-found
// errors (ErrSubtopicNotFound, ErrFeedbackNotFound) when nothing matches.
type Store interface {
	// Content
	SaveTopic(ctx context.Context, topic *domain.Topic) error
	SaveSubtopic(ctx context.Context, subtopic *domain.Subtopic) error
	GetSubtopic(ctx context.Context, id int64) (*domain.Subtopic, error)

	// Generated questions, persisted with their options in display order
	SaveQuestions(ctx context.Context, subtopicID int64, questions []domain.GeneratedQuestion) ([]domain.StoredQuestion, error)
	ListQuestions(ctx context.Context, subtopicID int64) ([]domain.StoredQuestion, error)

	// Validation feedback, append-only
	FindFeedback(ctx context.Context, codeHash string, exerciseID int64, kind string) (*domain.FeedbackRecord, error)
	SaveFeedback(ctx context.Context, record *domain.FeedbackRecord) error

	// Usage mirror
	RecordUsage(ctx context.Context, record domain.UsageRecord) error
	UsageTotals(ctx context.Context, since time.Time) ([]domain.UsageTotal, error)

	Ping(ctx context.Context) error
	Close() error
}
