package aigate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoocart/zoocart/internal/aigate/driver"
	"github.com/zoocart/zoocart/internal/core"
	"github.com/zoocart/zoocart/internal/core/quota"
)

type fakeDriver struct {
	reply    string
	err      error
	calls    int
	lastReq  *driver.Request
}

func (d *fakeDriver) Complete(_ context.Context, req *driver.Request) (*driver.Response, error) {
	d.calls++
	d.lastReq = req
	if d.err != nil {
		return nil, d.err
	}
	return &driver.Response{Content: d.reply, FinishReason: "stop"}, nil
}

func (d *fakeDriver) Name() string { return "fake" }

type fakeStore struct {
	messages  []core.ChatMessage
	usageDay  string
	usage     int
	appendErr error
}

func (s *fakeStore) AppendChatMessage(_ context.Context, msg core.ChatMessage) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *fakeStore) ChatHistory(_ context.Context, sessionID string, limit int) ([]core.ChatMessage, error) {
	var history []core.ChatMessage
	for _, msg := range s.messages {
		if msg.SessionID == sessionID {
			history = append(history, msg)
		}
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (s *fakeStore) BumpAIUsage(_ context.Context, day string, count int) error {
	s.usageDay = day
	s.usage = count
	return nil
}

func TestChatRunsOneTurn(t *testing.T) {
	drv := &fakeDriver{reply: "Hamsters like quiet cages."}
	store := &fakeStore{}
	gw := New(drv, quota.New(10, 100), "gpt-4o-mini")
	gw.Store = store
	gw.SystemPrompt = "You are a pet store assistant."

	result, err := gw.Chat(context.Background(), "sess-1", "What do hamsters need?")
	require.NoError(t, err)
	assert.Equal(t, "Hamsters like quiet cages.", result.Reply)
	assert.Equal(t, "sess-1", result.SessionID)

	require.NotNil(t, drv.lastReq)
	require.Len(t, drv.lastReq.Messages, 2)
	assert.Equal(t, "system", drv.lastReq.Messages[0].Role)
	assert.Equal(t, "user", drv.lastReq.Messages[1].Role)

	require.Len(t, store.messages, 2)
	assert.Equal(t, "user", store.messages[0].Role)
	assert.Equal(t, "assistant", store.messages[1].Role)
	assert.Equal(t, 1, store.usage)
}

func TestChatIncludesHistoryInOrder(t *testing.T) {
	drv := &fakeDriver{reply: "A 60L tank works."}
	store := &fakeStore{messages: []core.ChatMessage{
		{SessionID: "sess-1", Role: "user", Content: "I have two goldfish."},
		{SessionID: "sess-1", Role: "assistant", Content: "Nice, how big is the tank?"},
		{SessionID: "other", Role: "user", Content: "unrelated"},
	}}
	gw := New(drv, quota.New(10, 100), "gpt-4o-mini")
	gw.Store = store

	_, err := gw.Chat(context.Background(), "sess-1", "What size tank do I need?")
	require.NoError(t, err)

	require.Len(t, drv.lastReq.Messages, 3)
	assert.Equal(t, "I have two goldfish.", drv.lastReq.Messages[0].Content)
	assert.Equal(t, "Nice, how big is the tank?", drv.lastReq.Messages[1].Content)
	assert.Equal(t, "What size tank do I need?", drv.lastReq.Messages[2].Content)
}

func TestChatQuotaExhaustedSkipsUpstream(t *testing.T) {
	drv := &fakeDriver{reply: "ok"}
	gw := New(drv, quota.New(1, 100), "gpt-4o-mini")

	_, err := gw.Chat(context.Background(), "sess-1", "first")
	require.NoError(t, err)

	_, err = gw.Chat(context.Background(), "sess-1", "second")
	var limitErr *quota.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, quota.ScopeMinute, limitErr.Scope)
	assert.Equal(t, 1, drv.calls, "exhausted quota must not reach the upstream")
}

func TestChatUpstreamFailureIsNotRefunded(t *testing.T) {
	drv := &fakeDriver{err: errors.New("upstream down")}
	gw := New(drv, quota.New(1, 100), "gpt-4o-mini")

	_, err := gw.Chat(context.Background(), "sess-1", "hello")
	require.Error(t, err)

	status := gw.QuotaStatus()
	assert.Equal(t, 0, status.MinuteRemaining, "failed attempt still consumes the slot")
}

func TestChatValidatesInput(t *testing.T) {
	gw := New(&fakeDriver{reply: "ok"}, quota.New(10, 100), "gpt-4o-mini")

	_, err := gw.Chat(context.Background(), "", "hello")
	require.Error(t, err)

	_, err = gw.Chat(context.Background(), "sess-1", "   ")
	require.Error(t, err)

	long := make([]byte, maxMessageLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = gw.Chat(context.Background(), "sess-1", string(long))
	require.Error(t, err)
}

func TestChatPersistenceFailureDoesNotFailTurn(t *testing.T) {
	drv := &fakeDriver{reply: "ok"}
	store := &fakeStore{appendErr: errors.New("disk full")}
	gw := New(drv, quota.New(10, 100), "gpt-4o-mini")
	gw.Store = store

	result, err := gw.Chat(context.Background(), "sess-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Reply)
}

func TestResetQuotaRestoresBudget(t *testing.T) {
	gw := New(&fakeDriver{reply: "ok"}, quota.NewWithClock(1, 5, func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}), "gpt-4o-mini")

	_, err := gw.Chat(context.Background(), "sess-1", "one")
	require.NoError(t, err)
	_, err = gw.Chat(context.Background(), "sess-1", "two")
	require.Error(t, err)

	gw.ResetQuota()
	_, err = gw.Chat(context.Background(), "sess-1", "three")
	require.NoError(t, err)
}
