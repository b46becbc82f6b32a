package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/coachpad/internal/domain"
	"github.com/ashureev/coachpad/internal/identity"
)

const (
	maxOutcomeBody      = 4 << 10
	defaultHistoryLimit = 20
	archiveTimeout      = 5 * time.Second
)

// CoachHandler serves outcome reports, summaries and the call archive.
type CoachHandler struct {
	*Handler
}

// NewCoachHandler creates a coach handler.
func NewCoachHandler(base *Handler) *CoachHandler {
	return &CoachHandler{Handler: base}
}

// RegisterRoutes registers the coach routes, with and without the /api
// prefix for older clients.
func (h *CoachHandler) RegisterRoutes(r chi.Router) {
	r.Post("/outcome", h.ReportOutcome)
	r.Post("/api/outcome", h.ReportOutcome)
	r.Get("/summary", h.Summary)
	r.Get("/api/summary", h.Summary)
	r.Get("/api/history", h.History)
}

type outcomeRequest struct {
	Outcome string `json:"outcome"`
}

// ReportOutcome credits the session's last shown suggestions and archives
// the call.
func (h *CoachHandler) ReportOutcome(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())

	var req outcomeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxOutcomeBody)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid outcome")
		return
	}

	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		h.logger.Warn("Rejected outcome", "session_id", sessionID, "outcome", req.Outcome)
		Error(w, http.StatusBadRequest, "invalid outcome")
		return
	}

	entry, ok := h.sessions.Get(sessionID)
	if !ok {
		h.logger.Info("Outcome for unknown session, nothing to credit", "session_id", sessionID, "outcome", outcome)
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	coord := entry.Coordinator
	credited, err := coord.ReportOutcome(r.Context(), string(outcome))
	if err != nil {
		h.logger.Error("Failed to report outcome", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to report outcome")
		return
	}

	if h.repo != nil {
		rec := &domain.CallRecord{
			ID:          h.newID(),
			SessionID:   sessionID,
			Outcome:     outcome,
			Suggestions: credited,
			Summary:     coord.Summary(),
			CreatedAt:   h.now(),
		}
		// The archive is best effort: the rank table is already updated.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), archiveTimeout)
		if err := h.repo.SaveCallRecord(ctx, rec); err != nil {
			h.logger.Error("Failed to archive call", "error", err, "session_id", sessionID)
		}
		cancel()
	}

	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Summary returns a plain-text digest of the session. It never creates one.
func (h *CoachHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	JSON(w, http.StatusOK, map[string]string{"summary": h.sessions.Summary(sessionID)})
}

// History lists the session's archived calls, newest first.
func (h *CoachHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		Error(w, http.StatusServiceUnavailable, "call archive not configured")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sessionID := identity.SessionIDFromContext(r.Context())
	records, err := h.repo.ListCallRecords(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("Failed to list call records", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"records":    records,
	})
}
