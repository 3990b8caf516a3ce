package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/zoocart/zoocart/internal/aigate"
	"github.com/zoocart/zoocart/internal/aigate/driver"
	"github.com/zoocart/zoocart/internal/core/quota"
	apperrors "github.com/zoocart/zoocart/internal/errors"
	"github.com/zoocart/zoocart/internal/metrics"
)

// ChatRequest is the POST /api/v1/chat payload.
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	Message   string `json:"message" validate:"required,max=4000"`
}

// ChatHandler serves the AI shopping assistant endpoint.
type ChatHandler struct {
	Gateway *aigate.Gateway
}

// NewChatHandler returns a handler bound to the gateway.
func NewChatHandler(gateway *aigate.Gateway) *ChatHandler {
	return &ChatHandler{Gateway: gateway}
}

// Handle runs one chat turn.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Gateway == nil {
		respondWithError(w, r, apperrors.NewInternalError("AI assistant is not configured"))
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Request body must be valid JSON"))
		return
	}

	if err := validatePayload(req); err != nil {
		respondWithError(w, r, apperrors.WrapValidationError(r.Context(), err, "session_id and message are required"))
		return
	}

	start := time.Now()
	result, err := h.Gateway.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		respondWithError(w, r, mapChatError(err))
		return
	}
	metrics.RecordAIChatDuration(time.Since(start))
	metrics.RecordOperation("chat", true)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

// mapChatError translates gateway failures into API error envelopes. Quota
// exhaustion becomes a 429 with a Retry-After hint; upstream provider
// failures become a 502 without leaking the raw provider response.
func mapChatError(err error) error {
	var limitErr *quota.LimitError
	if errors.As(err, &limitErr) {
		retryAfter := int(math.Ceil(limitErr.RetryAfter.Seconds()))
		return apperrors.NewRateLimitedError(limitErr.Error(), retryAfter)
	}

	var providerErr *driver.ProviderError
	if errors.As(err, &providerErr) {
		return apperrors.NewExternalServiceError("AI assistant is temporarily unavailable")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("AI assistant did not respond in time")
	}

	return apperrors.NewInternalError(err.Error())
}
