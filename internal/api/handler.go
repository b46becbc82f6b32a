// Package api provides HTTP handlers for the coaching API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/coachpad/internal/session"
	"github.com/ashureev/coachpad/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	sessions *session.Registry
	// repo is nil when the call archive is disabled.
	repo   store.Repository
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sessions *session.Registry, repo store.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions: sessions,
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
