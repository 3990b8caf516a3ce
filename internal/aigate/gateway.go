// Package aigate fronts the shared generative-AI upstream: every chat turn
// passes the process-wide quota gate before a single token is sent upstream.
package aigate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zoocart/zoocart/internal/aigate/driver"
	"github.com/zoocart/zoocart/internal/core"
	"github.com/zoocart/zoocart/internal/core/quota"
	"github.com/zoocart/zoocart/internal/metrics"
	"github.com/zoocart/zoocart/internal/observability"
)

const (
	defaultHistoryLimit = 20
	maxMessageLength    = 4000
)

// ChatStore is the persistence surface the gateway needs. Satisfied by
// *store.Store; kept narrow so tests can run without a database.
type ChatStore interface {
	AppendChatMessage(ctx context.Context, msg core.ChatMessage) error
	ChatHistory(ctx context.Context, sessionID string, limit int) ([]core.ChatMessage, error)
	BumpAIUsage(ctx context.Context, day string, count int) error
}

// ChatResult is one completed assistant turn.
type ChatResult struct {
	SessionID string        `json:"session_id"`
	Reply     string        `json:"reply"`
	Usage     *driver.Usage `json:"usage,omitempty"`
}

// Gateway wires the quota limiter in front of the completion driver and
// persists conversation turns. All fields except Driver and Limiter are
// optional.
type Gateway struct {
	Driver       driver.Driver
	Limiter      *quota.Limiter
	Store        ChatStore
	Model        string
	SystemPrompt string
	HistoryLimit int

	clock func() time.Time
}

// New returns a gateway with defaults applied.
func New(drv driver.Driver, limiter *quota.Limiter, model string) *Gateway {
	return &Gateway{
		Driver:       drv,
		Limiter:      limiter,
		Model:        model,
		HistoryLimit: defaultHistoryLimit,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// Chat runs one conversation turn. The quota is consumed exactly once, before
// the upstream call; an upstream failure does not refund the slot. A
// *quota.LimitError passes through unchanged so callers can map it to a 429.
func (g *Gateway) Chat(ctx context.Context, sessionID, message string) (*ChatResult, error) {
	if g == nil || g.Driver == nil || g.Limiter == nil {
		return nil, errors.New("ai gateway is not configured")
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("message is required")
	}
	if len(message) > maxMessageLength {
		return nil, fmt.Errorf("message exceeds %d characters", maxMessageLength)
	}

	if err := g.Limiter.Allow(); err != nil {
		var limitErr *quota.LimitError
		if errors.As(err, &limitErr) {
			metrics.RecordAIQuotaDenied(string(limitErr.Scope))
		}
		return nil, err
	}

	messages, err := g.buildMessages(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}

	resp, err := g.Driver.Complete(ctx, &driver.Request{
		Model:    g.Model,
		Messages: messages,
	})
	if err != nil {
		metrics.RecordAIUpstreamError(g.Driver.Name())
		return nil, fmt.Errorf("ai completion failed: %w", err)
	}

	g.persistTurn(ctx, sessionID, message, resp.Content)

	return &ChatResult{
		SessionID: sessionID,
		Reply:     resp.Content,
		Usage:     resp.Usage,
	}, nil
}

// QuotaStatus reports the live windows for the admin endpoint.
func (g *Gateway) QuotaStatus() quota.Status {
	return g.Limiter.Status()
}

// ResetQuota zeroes both quota windows.
func (g *Gateway) ResetQuota() {
	g.Limiter.Reset()
}

// buildMessages assembles system prompt, recent history, and the new user
// message in provider order.
func (g *Gateway) buildMessages(ctx context.Context, sessionID, message string) ([]driver.Message, error) {
	var history []core.ChatMessage
	if g.Store != nil {
		limit := g.HistoryLimit
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		var err error
		history, err = g.Store.ChatHistory(ctx, sessionID, limit)
		if err != nil {
			return nil, fmt.Errorf("load chat history: %w", err)
		}
	}

	messages := make([]driver.Message, 0, len(history)+2)
	if prompt := strings.TrimSpace(g.SystemPrompt); prompt != "" {
		messages = append(messages, driver.Message{Role: "system", Content: prompt})
	}
	for _, turn := range history {
		messages = append(messages, driver.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, driver.Message{Role: "user", Content: message})

	return messages, nil
}

// persistTurn stores both sides of the exchange and snapshots day usage.
// Persistence is best-effort: the reply already happened.
func (g *Gateway) persistTurn(ctx context.Context, sessionID, userMessage, reply string) {
	if g.Store == nil {
		return
	}

	now := g.now()
	turns := []core.ChatMessage{
		{SessionID: sessionID, Role: "user", Content: userMessage, CreatedAt: now},
		{SessionID: sessionID, Role: "assistant", Content: reply, CreatedAt: now},
	}
	for _, turn := range turns {
		if err := g.Store.AppendChatMessage(ctx, turn); err != nil {
			if observability.ServerLogger != nil {
				observability.ServerLogger.Warn("Failed to persist chat turn",
					zap.String("session_id", sessionID),
					zap.String("role", turn.Role),
					zap.Error(err))
			}
			return
		}
	}

	day := now.Format("2006-01-02")
	if err := g.Store.BumpAIUsage(ctx, day, g.Limiter.DayCount()); err != nil {
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Failed to snapshot AI usage",
				zap.String("day", day),
				zap.Error(err))
		}
	}
}

func (g *Gateway) now() time.Time {
	if g.clock != nil {
		return g.clock()
	}
	return time.Now().UTC()
}
