package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/logger"
)

// Submission outcomes used as metric labels.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Contact handles /api/contact. Method checking is the first pipeline
// stage, so every method is routed here.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &service.Request{
		Method: r.Method,
		Body:   r.Body,
		Meta:   h.requestMeta(r),
	}

	// Only a POST can pass the method stage; other methods must not
	// create sessions.
	if r.Method == http.MethodPost {
		id, err := h.sessions.Resolve(ctx, w, r)
		if err != nil {
			logger.L(ctx).Error("session bootstrap failed", "error", err)
			h.sessionFailed(ctx, req.Meta, err)
			w.Header().Set("X-Error-Code", domain.ErrInternalServer.Code)
			h.writeResult(w, r, http.StatusInternalServerError, false, "Session error")
			return
		}
		req.SessionID = id
	}

	out := h.pipeline.Run(ctx, req)
	h.recordOutcome(out)

	if out.NewSessionID != "" {
		h.sessions.SetCookie(w, r, out.NewSessionID)
	}

	if out.Accepted() {
		logger.L(ctx).Info("submission accepted", "bot_score", out.BotScore)
		h.writeResult(w, r, out.Status, true, out.Message)
		return
	}

	rej := out.Rejection
	log := logger.L(ctx).With("stage", string(rej.Stage), "code", rej.Code, "reason", rej.Reason)
	if out.Status >= http.StatusInternalServerError {
		log.Error("submission failed")
	} else {
		log.Info("submission rejected")
	}

	w.Header().Set("X-Error-Code", rej.Code)
	if out.Status == http.StatusTooManyRequests && h.retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(h.retry/time.Second)))
	}
	h.writeJSON(w, r, out.Status, Result{
		Success: false,
		Message: out.Message,
		Field:   rej.Field,
	})
}

func (h *Handler) recordOutcome(out *service.Outcome) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordBotScore(out.BotScore)
	switch {
	case out.Accepted():
		h.metrics.RecordSubmission(OutcomeAccepted, "")
	case out.Status >= http.StatusInternalServerError:
		h.metrics.RecordSubmission(OutcomeError, string(out.Rejection.Stage))
	default:
		h.metrics.RecordSubmission(OutcomeRejected, string(out.Rejection.Stage))
	}
}

// sessionFailed records a submission that failed before the pipeline could
// bind it to a session.
func (h *Handler) sessionFailed(ctx context.Context, meta domain.RequestMeta, err error) {
	reason := "session: " + err.Error()
	h.events.Security(ctx, meta, reason)
	h.events.Audit(ctx, meta, domain.ActionSubmitError, map[string]string{
		"reason": reason,
		"stage":  string(domain.StageInternal),
	})
	h.events.ContactError(ctx, meta, "Session error")
	if h.metrics != nil {
		h.metrics.RecordSubmission(OutcomeError, string(domain.StageInternal))
	}
}
