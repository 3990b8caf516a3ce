package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AIUsageDay is one persisted day-window high-water mark.
type AIUsageDay struct {
	Day          string    `json:"day"`
	RequestCount int       `json:"request_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AIUsageDays returns the most recent usage snapshots, newest first.
func (s *Store) AIUsageDays(ctx context.Context, limit int) ([]AIUsageDay, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 30
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT day, request_count, updated_at
		FROM ai_usage_days
		ORDER BY day DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch ai usage: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	days := make([]AIUsageDay, 0, limit)
	for rows.Next() {
		var (
			day       AIUsageDay
			updatedAt int64
		)
		if err := rows.Scan(&day.Day, &day.RequestCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan ai usage: %w", err)
		}
		day.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch ai usage: %w", err)
	}

	return days, nil
}
