package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is the SQLite-backed record store.
type Store struct {
	db  *DB
	now func() time.Time
}

// NewStore creates a store on an open, migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTopic inserts a topic, or updates its name when ID is already set.
func (s *Store) SaveTopic(ctx context.Context, topic *domain.Topic) error {
	if topic.ID > 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO topics (id, name) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
			topic.ID, topic.Name)
		if err != nil {
			return fmt.Errorf("upsert topic: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO topics (name) VALUES (?)", topic.Name)
	if err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("topic id: %w", err)
	}
	topic.ID = id
	return nil
}

// SaveSubtopic inserts a subtopic, or updates it when ID is already set.
func (s *Store) SaveSubtopic(ctx context.Context, sub *domain.Subtopic) error {
	if sub.ID > 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO subtopics (id, topic_id, name, description, detail) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				topic_id = excluded.topic_id,
				name = excluded.name,
				description = excluded.description,
				detail = excluded.detail`,
			sub.ID, sub.TopicID, sub.Name, sub.Description, sub.Detail)
		if err != nil {
			return fmt.Errorf("upsert subtopic: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO subtopics (topic_id, name, description, detail) VALUES (?, ?, ?, ?)",
		sub.TopicID, sub.Name, sub.Description, sub.Detail)
	if err != nil {
		return fmt.Errorf("insert subtopic: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("subtopic id: %w", err)
	}
	sub.ID = id
	return nil
}

// GetSubtopic loads a subtopic together with its topic.
func (s *Store) GetSubtopic(ctx context.Context, id int64) (*domain.Subtopic, error) {
	sub := &domain.Subtopic{Topic: &domain.Topic{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.topic_id, s.name, s.description, s.detail, t.id, t.name
		FROM subtopics s
		JOIN topics t ON t.id = s.topic_id
		WHERE s.id = ?`, id,
	).Scan(&sub.ID, &sub.TopicID, &sub.Name, &sub.Description, &sub.Detail, &sub.Topic.ID, &sub.Topic.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubtopicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subtopic: %w", err)
	}
	return sub, nil
}
