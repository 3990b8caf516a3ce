package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zoocart/zoocart/internal/core"
	"github.com/zoocart/zoocart/internal/core/delivery"
	apperrors "github.com/zoocart/zoocart/internal/errors"
	"github.com/zoocart/zoocart/internal/metrics"
	"github.com/zoocart/zoocart/internal/observability"
)

// QuoteAuditor persists presented quotes. Satisfied by *store.Store.
type QuoteAuditor interface {
	RecordQuoteAudit(ctx context.Context, req core.QuoteRequest, options []core.DeliveryOption) error
}

// DeliveryHandler serves the quote aggregation endpoint.
type DeliveryHandler struct {
	Aggregator *delivery.Aggregator
	Auditor    QuoteAuditor
}

// NewDeliveryHandler returns a handler bound to the aggregator. auditor may
// be nil when running without a database.
func NewDeliveryHandler(aggregator *delivery.Aggregator, auditor QuoteAuditor) *DeliveryHandler {
	return &DeliveryHandler{Aggregator: aggregator, Auditor: auditor}
}

// Quotes handles POST /api/v1/delivery/quotes.
func (h *DeliveryHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Aggregator == nil {
		respondWithError(w, r, apperrors.NewInternalError("delivery quotes are not configured"))
		return
	}

	var req core.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Request body must be valid JSON"))
		return
	}

	if err := validatePayload(req); err != nil {
		respondWithError(w, r, apperrors.WrapValidationError(r.Context(), err, "from_city, to_city and a positive weight_kg are required"))
		return
	}

	start := time.Now()
	set, err := h.Aggregator.Quote(r.Context(), req)
	if err != nil {
		var invalidErr *delivery.InvalidRequestError
		if errors.As(err, &invalidErr) {
			respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid quote request"))
			return
		}
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to aggregate delivery quotes"))
		return
	}

	metrics.RecordQuoteDuration(time.Since(start))
	recordCarrierOutcomes(set)
	h.auditQuotes(r.Context(), req, set)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(set)
}

func recordCarrierOutcomes(set *core.QuoteSet) {
	failed := make(map[core.ProviderID]bool, len(set.Failed))
	for _, provider := range set.Failed {
		failed[provider] = true
		metrics.RecordCarrierQuote(string(provider), false)
		metrics.RecordCarrierFallback(string(provider))
	}
	for _, option := range set.Options {
		if !failed[option.Provider] {
			metrics.RecordCarrierQuote(string(option.Provider), true)
		}
	}
}

// auditQuotes is best-effort: the customer already has their prices.
func (h *DeliveryHandler) auditQuotes(ctx context.Context, req core.QuoteRequest, set *core.QuoteSet) {
	if h.Auditor == nil || set == nil {
		return
	}
	if err := h.Auditor.RecordQuoteAudit(ctx, req, set.Options); err != nil {
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Failed to record quote audit",
				zap.String("from_city", req.FromCity),
				zap.String("to_city", req.ToCity),
				zap.Error(err))
		}
	}
}
