package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS quote_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL,
		from_city TEXT NOT NULL,
		to_city TEXT NOT NULL,
		weight_kg REAL NOT NULL,
		declared_value REAL NOT NULL,
		base_price REAL NOT NULL,
		effective_price REAL NOT NULL,
		is_fallback INTEGER NOT NULL DEFAULT 0,
		quoted_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_quote_audit_quoted ON quote_audit(quoted_at);`,
	`CREATE TABLE IF NOT EXISTS ai_usage_days (
		day TEXT PRIMARY KEY,
		request_count INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
