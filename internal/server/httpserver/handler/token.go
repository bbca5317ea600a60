package handler

import (
	"net/http"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/logger"
)

// CSRFToken handles /api/csrf-token. Only GET is accepted.
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeResult(w, r, http.StatusMethodNotAllowed, false, domain.ErrMethodNotAllowed.Message)
		return
	}

	ctx := r.Context()
	sessionID, err := h.sessions.Resolve(ctx, w, r)
	if err != nil {
		logger.L(ctx).Error("session bootstrap failed", "error", err)
		h.writeResult(w, r, http.StatusInternalServerError, false, "Session error")
		return
	}

	issued, err := h.tokens.Issue(ctx, sessionID)
	if err != nil {
		logger.L(ctx).Error("token issue failed", "error", err)
		h.writeResult(w, r, http.StatusInternalServerError, false, domain.ErrEntropy.Message)
		return
	}
	if h.metrics != nil {
		h.metrics.IncTokensIssued()
	}

	resp := TokenResponse{
		Success:   true,
		CSRFToken: issued.CSRFToken,
		Timestamp: issued.Timestamp,
	}
	if issued.DoubleSubmitToken != "" {
		resp.DoubleSubmitToken = &issued.DoubleSubmitToken
	}
	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, r, http.StatusOK, resp)
}
