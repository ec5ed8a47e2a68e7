package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/google/uuid"
)

// UsageEvent is the message carried on the usage queue
type UsageEvent struct {
	ID          uuid.UUID          `json:"id"`
	Record      domain.UsageRecord `json:"record"`
	PublishedAt time.Time          `json:"published_at"`
}

// Publisher is the part of Connection the producer needs
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// UsagePublisher mirrors usage records to the usage queue. It satisfies
// usage.Sink.
type UsagePublisher struct {
	pub    Publisher
	logger *slog.Logger
}

// NewUsagePublisher creates a publisher on an open connection
func NewUsagePublisher(pub Publisher, logger *slog.Logger) *UsagePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsagePublisher{pub: pub, logger: logger}
}

// RecordUsage publishes one usage record
func (p *UsagePublisher) RecordUsage(ctx context.Context, rec domain.UsageRecord) error {
	event := UsageEvent{
		ID:          uuid.New(),
		Record:      rec,
		PublishedAt: time.Now().UTC(),
	}

	if err := p.pub.PublishJSON(ctx, UsageQueueName, event); err != nil {
		return fmt.Errorf("failed to publish usage event: %w", err)
	}

	p.logger.Debug("published usage event",
		"event_id", event.ID,
		"kind", rec.Kind,
		"cache_hit", rec.CacheHit,
	)
	return nil
}
