package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoocart/zoocart/internal/core"
)

// RecordQuoteAudit persists every presented option of one aggregation call.
// Both the carrier's raw price and the effective (post free-shipping) price
// are kept so threshold overrides stay auditable.
func (s *Store) RecordQuoteAudit(ctx context.Context, req core.QuoteRequest, options []core.DeliveryOption) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if len(options) == 0 {
		return nil
	}

	now := time.Now().UTC().Unix()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quote audit: %w", err)
	}

	for _, option := range options {
		fallback := 0
		if option.IsFallback {
			fallback = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quote_audit
				(provider, from_city, to_city, weight_kg, declared_value,
				 base_price, effective_price, is_fallback, quoted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, string(option.Provider), req.FromCity, req.ToCity, req.WeightKg,
			req.DeclaredValue, option.BasePrice, option.Price, fallback, now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store quote audit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quote audit: %w", err)
	}

	return nil
}

// RecentQuoteAudits returns the latest audit rows, newest first.
func (s *Store) RecentQuoteAudits(ctx context.Context, limit int) ([]core.QuoteAudit, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, provider, from_city, to_city, weight_kg, declared_value,
		       base_price, effective_price, is_fallback, quoted_at
		FROM quote_audit
		ORDER BY quoted_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch quote audits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	audits := make([]core.QuoteAudit, 0, limit)
	for rows.Next() {
		var (
			audit    core.QuoteAudit
			provider string
			fallback int
			quotedAt int64
		)
		if err := rows.Scan(&audit.ID, &provider, &audit.FromCity, &audit.ToCity,
			&audit.WeightKg, &audit.DeclaredValue, &audit.BasePrice,
			&audit.EffectivePrice, &fallback, &quotedAt); err != nil {
			return nil, fmt.Errorf("scan quote audit: %w", err)
		}
		audit.Provider = core.ProviderID(provider)
		audit.IsFallback = fallback != 0
		audit.QuotedAt = time.Unix(quotedAt, 0).UTC()
		audits = append(audits, audit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch quote audits: %w", err)
	}

	return audits, nil
}

// BumpAIUsage records the day-window high-water mark for reporting. The live
// quota window stays in memory; this table is never read back into it.
func (s *Store) BumpAIUsage(ctx context.Context, day string, count int) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO ai_usage_days (day, request_count, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			request_count = MAX(request_count, excluded.request_count),
			updated_at = excluded.updated_at
	`, day, count, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("store ai usage: %w", err)
	}

	return nil
}
