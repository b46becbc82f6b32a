// Package transport serves the websocket channels: the observer push
// channel and the transcript, audio and vision ingestion channels.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/coachpad/internal/collab"
	"github.com/ashureev/coachpad/internal/identity"
	"github.com/ashureev/coachpad/internal/session"
)

const (
	defaultMaxFrameBytes = 1 << 20
	transcriptReadLimit  = 64 << 10
	writeTimeout         = 5 * time.Second
)

// Config configures the websocket handler.
type Config struct {
	AllowedOrigin string
	IsDev         bool
	MaxFrameBytes int64
	// Speech is nil when no recognizer is configured; the audio channel
	// then refuses connections.
	Speech collab.SpeechRecognizer
	Logger *slog.Logger
}

// Handler serves all websocket channels for the session registry.
type Handler struct {
	sessions      *session.Registry
	speech        collab.SpeechRecognizer
	allowedOrigin string
	isDev         bool
	maxFrameBytes int64
	logger        *slog.Logger
	now           func() time.Time
}

// NewHandler creates a websocket handler.
func NewHandler(sessions *session.Registry, cfg Config) *Handler {
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = defaultMaxFrameBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		sessions:      sessions,
		speech:        cfg.Speech,
		allowedOrigin: cfg.AllowedOrigin,
		isDev:         cfg.IsDev,
		maxFrameBytes: cfg.MaxFrameBytes,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// RegisterRoutes mounts the websocket channels on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/ui", h.ServeObserver)
	r.Get("/ws/ingest", h.ServeTranscript)
	r.Get("/ws/audio", h.ServeAudio)
	r.Get("/ws/vision", h.ServeVision)
}

// accept performs the origin check and the websocket upgrade. It returns
// nil when the request was rejected.
func (h *Handler) accept(w http.ResponseWriter, r *http.Request, channel string) *websocket.Conn {
	sessionID := identity.SessionIDFromContext(r.Context())
	h.logger.Info("WebSocket connection request",
		"channel", channel,
		"session_id", sessionID,
		"ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return nil
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "channel", channel, "session_id", sessionID)
		return nil
	}
	return ws
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) closeConn(ws *websocket.Conn, code websocket.StatusCode, reason string) {
	if err := ws.Close(code, reason); err != nil {
		h.logger.Debug("Failed to close websocket", "error", err)
	}
}

func writeText(ctx context.Context, ws *websocket.Conn, text string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, []byte(text))
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}

// logReadEnd logs why a read loop ended.
func (h *Handler) logReadEnd(err error, channel, sessionID string) {
	if websocket.CloseStatus(err) != -1 {
		h.logger.Debug("WebSocket closed by client", "channel", channel, "session_id", sessionID)
		return
	}
	h.logger.Debug("WebSocket read ended", "channel", channel, "session_id", sessionID, "error", err)
}
