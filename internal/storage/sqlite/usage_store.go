package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// RecordUsage appends one usage record.
func (s *Store) RecordUsage(ctx context.Context, rec domain.UsageRecord) error {
	var userID sql.NullInt64
	if rec.UserID > 0 {
		userID = sql.NullInt64{Int64: rec.UserID, Valid: true}
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_logs (kind, estimated_tokens, cache_hit, latency_ms, user_id, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Kind), rec.EstimatedTokens, rec.CacheHit, rec.LatencyMS, userID, rec.Model, ts.UTC())
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

// UsageTotals aggregates usage recorded at or after since, per request kind.
func (s *Store) UsageTotals(ctx context.Context, since time.Time) ([]domain.UsageTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*), COALESCE(SUM(cache_hit), 0), COALESCE(SUM(estimated_tokens), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM usage_logs
		WHERE created_at >= ?
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
