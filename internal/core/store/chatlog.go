package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zoocart/zoocart/internal/core"
)

// AppendChatMessage persists one conversation turn.
func (s *Store) AppendChatMessage(ctx context.Context, msg core.ChatMessage) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	sessionID := strings.TrimSpace(msg.SessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}
	if msg.Role != "user" && msg.Role != "assistant" {
		return fmt.Errorf("unsupported chat role: %s", msg.Role)
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO chat_messages (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, msg.Role, msg.Content, createdAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store chat message: %w", err)
	}

	return nil
}

// ChatHistory returns the most recent turns of a session, oldest first.
func (s *Store) ChatHistory(ctx context.Context, sessionID string, limit int) ([]core.ChatMessage, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM (
			SELECT id, session_id, role, content, created_at
			FROM chat_messages
			WHERE session_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch chat history: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	messages := make([]core.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			msg       core.ChatMessage
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msg.CreatedAt = time.Unix(createdAt, 0).UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch chat history: %w", err)
	}

	return messages, nil
}
