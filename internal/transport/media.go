package transport

import (
	"context"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ashureev/coachpad/internal/identity"
)

const (
	ackOK                   = "ok"
	errSpeechNotConfigured  = "error:speech recognition not configured"
	errSpeechFailed         = "error:speech recognition failed"
	errFaceAnalysisFailed   = "error:face analysis failed"
	errSpeechStreamRejected = "error:speech recognition unavailable"
)

// ServeAudio feeds 16kHz PCM frames to a per-connection recognition stream
// and acks each frame.
func (h *Handler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	ws := h.accept(w, r, "audio")
	if ws == nil {
		return
	}
	defer h.closeConn(ws, websocket.StatusNormalClosure, "audio ended")

	ctx := r.Context()
	sessionID := identity.SessionIDFromContext(ctx)

	if h.speech == nil {
		h.logger.Warn("Audio channel refused: no speech recognizer", "session_id", sessionID)
		if err := writeText(ctx, ws, errSpeechNotConfigured); err != nil {
			h.logger.Debug("Failed to send audio error", "error", err)
		}
		h.closeConn(ws, websocket.StatusPolicyViolation, "speech recognition not configured")
		return
	}

	stream, err := h.speech.NewStream(ctx)
	if err != nil {
		h.logger.Error("Failed to open speech stream", "error", err, "session_id", sessionID)
		if err := writeText(ctx, ws, errSpeechStreamRejected); err != nil {
			h.logger.Debug("Failed to send audio error", "error", err)
		}
		h.closeConn(ws, websocket.StatusInternalError, "speech recognition unavailable")
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			h.logger.Debug("Failed to close speech stream", "error", err, "session_id", sessionID)
		}
	}()

	ws.SetReadLimit(h.maxFrameBytes)
	entry, release := h.sessions.Attach(sessionID)
	defer release()
	coord := entry.Coordinator

	h.serveFrames(ctx, ws, "audio", sessionID, func(frame []byte) string {
		if _, _, err := coord.IngestAudioFrame(ctx, stream, frame); err != nil {
			h.logger.Warn("Audio frame failed", "error", err, "session_id", sessionID)
			return errSpeechFailed
		}
		return ackOK
	})
}

// ServeVision updates the session's engagement from camera frames and acks
// each frame.
func (h *Handler) ServeVision(w http.ResponseWriter, r *http.Request) {
	ws := h.accept(w, r, "vision")
	if ws == nil {
		return
	}
	defer h.closeConn(ws, websocket.StatusNormalClosure, "vision ended")
	ws.SetReadLimit(h.maxFrameBytes)

	ctx := r.Context()
	sessionID := identity.SessionIDFromContext(ctx)
	entry, release := h.sessions.Attach(sessionID)
	defer release()
	coord := entry.Coordinator

	h.serveFrames(ctx, ws, "vision", sessionID, func(frame []byte) string {
		if _, err := coord.IngestVisionFrame(ctx, frame); err != nil {
			h.logger.Warn("Vision frame failed", "error", err, "session_id", sessionID)
			return errFaceAnalysisFailed
		}
		return ackOK
	})
}

// serveFrames reads frames until the client goes away, replying with the
// text handle returns for each.
func (h *Handler) serveFrames(ctx context.Context, ws *websocket.Conn, channel, sessionID string, handle func([]byte) string) {
	for {
		_, frame, err := ws.Read(ctx)
		if err != nil {
			h.logReadEnd(err, channel, sessionID)
			return
		}
		if err := writeText(ctx, ws, handle(frame)); err != nil {
			h.logger.Debug("Failed to send frame ack", "error", err, "channel", channel, "session_id", sessionID)
			return
		}
	}
}
