package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/zoocart/zoocart/internal/aigate"
	apperrors "github.com/zoocart/zoocart/internal/errors"
	"github.com/zoocart/zoocart/internal/observability"
)

// QuotaHandler exposes the AI quota windows to operators.
type QuotaHandler struct {
	Gateway *aigate.Gateway
}

// NewQuotaHandler returns a handler bound to the gateway.
func NewQuotaHandler(gateway *aigate.Gateway) *QuotaHandler {
	return &QuotaHandler{Gateway: gateway}
}

// Status handles GET /api/v1/admin/ai-quota.
func (h *QuotaHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Gateway == nil {
		respondWithError(w, r, apperrors.NewInternalError("AI quota is not configured"))
		return
	}

	status := h.Gateway.QuotaStatus()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

// Reset handles POST /api/v1/admin/ai-quota/reset. Both windows are zeroed
// and re-anchored; the response carries the fresh status.
func (h *QuotaHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Gateway == nil {
		respondWithError(w, r, apperrors.NewInternalError("AI quota is not configured"))
		return
	}

	h.Gateway.ResetQuota()
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("AI quota windows reset via admin endpoint")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.Gateway.QuotaStatus())
}
