// Package quota guards the shared generative-AI upstream with a dual
// sliding-window budget: one per-minute window and one per-day window.
// The budget is process-wide because all callers share one upstream API key.
package quota

import (
	"fmt"
	"sync"
	"time"
)

// Scope names the window that rejected a request.
type Scope string

const (
	ScopeMinute Scope = "minute"
	ScopeDay    Scope = "day"
)

// LimitError reports an exhausted window.
type LimitError struct {
	Scope      Scope
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	switch e.Scope {
	case ScopeDay:
		return fmt.Sprintf("daily AI request limit reached, try again in %s", e.RetryAfter.Round(time.Second))
	default:
		return fmt.Sprintf("per-minute AI request limit reached, try again in %s", e.RetryAfter.Round(time.Second))
	}
}

// Status is a point-in-time snapshot of both windows.
type Status struct {
	MinuteRemaining int   `json:"minute_remaining"`
	DayRemaining    int   `json:"day_remaining"`
	MinuteResetInMs int64 `json:"minute_reset_in_ms"`
	DayResetInMs    int64 `json:"day_reset_in_ms"`
}

type window struct {
	count   int
	resetAt time.Time
	length  time.Duration
	limit   int
}

// Limiter enforces the per-minute and per-day budgets. Windows reset lazily
// on the next call observed past their boundary; there is no background timer.
type Limiter struct {
	mu     sync.Mutex
	minute window
	day    window
	clock  func() time.Time
}

// New returns a limiter with both windows anchored at the current instant.
func New(perMinute, perDay int) *Limiter {
	return NewWithClock(perMinute, perDay, nil)
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(perMinute, perDay int, clock func() time.Time) *Limiter {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	now := clock()
	return &Limiter{
		minute: window{resetAt: now.Add(time.Minute), length: time.Minute, limit: perMinute},
		day:    window{resetAt: now.Add(24 * time.Hour), length: 24 * time.Hour, limit: perDay},
		clock:  clock,
	}
}

// Allow consumes one slot from both windows, or returns a LimitError naming
// the window that is exhausted. It must be called exactly once per upstream
// attempt, before the request is issued; a failed upstream call is not
// refunded.
func (l *Limiter) Allow() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.minute.resetIfElapsed(now)
	l.day.resetIfElapsed(now)

	if l.day.count >= l.day.limit {
		return &LimitError{Scope: ScopeDay, RetryAfter: l.day.resetAt.Sub(now)}
	}
	if l.minute.count >= l.minute.limit {
		return &LimitError{Scope: ScopeMinute, RetryAfter: l.minute.resetAt.Sub(now)}
	}

	l.minute.count++
	l.day.count++
	return nil
}

// Status reports remaining budget and time to reset for both windows.
// Values are clamped at zero and never exceed the configured limits.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.minute.resetIfElapsed(now)
	l.day.resetIfElapsed(now)

	return Status{
		MinuteRemaining: l.minute.remaining(),
		DayRemaining:    l.day.remaining(),
		MinuteResetInMs: clampMs(l.minute.resetAt.Sub(now)),
		DayResetInMs:    clampMs(l.day.resetAt.Sub(now)),
	}
}

// Reset zeroes both windows and re-anchors them at the current instant.
// Used by the admin reset command.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.minute.count = 0
	l.minute.resetAt = now.Add(l.minute.length)
	l.day.count = 0
	l.day.resetAt = now.Add(l.day.length)
}

// DayCount returns the current day-window usage, for persistence snapshots.
func (l *Limiter) DayCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.day.resetIfElapsed(l.clock())
	return l.day.count
}

func (w *window) resetIfElapsed(now time.Time) {
	if now.Before(w.resetAt) {
		return
	}
	w.count = 0
	w.resetAt = now.Add(w.length)
}

func (w *window) remaining() int {
	left := w.limit - w.count
	if left < 0 {
		return 0
	}
	return left
}

func clampMs(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
