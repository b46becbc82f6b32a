package transport

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ashureev/coachpad/internal/domain"
	"github.com/ashureev/coachpad/internal/identity"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

type transcriptAck struct {
	Status     string `json:"status"`
	ReceivedMs int64  `json:"received_ms"`
}

type transcriptReject struct {
	Status string `json:"status"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ServeTranscript ingests one conversation event per message and acks
// each. A malformed message is answered with the failing field and the
// connection is closed.
func (h *Handler) ServeTranscript(w http.ResponseWriter, r *http.Request) {
	ws := h.accept(w, r, "ingest")
	if ws == nil {
		return
	}
	defer h.closeConn(ws, websocket.StatusNormalClosure, "ingest ended")
	ws.SetReadLimit(transcriptReadLimit)

	ctx := r.Context()
	sessionID := identity.SessionIDFromContext(ctx)
	entry, release := h.sessions.Attach(sessionID)
	defer release()
	coord := entry.Coordinator

	for {
		_, msg, err := ws.Read(ctx)
		if err != nil {
			h.logReadEnd(err, "ingest", sessionID)
			return
		}

		ev, err := domain.DecodeTranscript(msg)
		if err == nil {
			_, err = coord.IngestTranscript(ctx, ev)
		}
		if err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				verr = &domain.ValidationError{Field: "body", Reason: err.Error()}
			}
			h.logger.Warn("Rejected transcript message", "session_id", sessionID, "field", verr.Field, "reason", verr.Reason)
			if err := writeJSON(ctx, ws, transcriptReject{Status: statusError, Field: verr.Field, Reason: verr.Reason}); err != nil {
				h.logger.Debug("Failed to send rejection", "error", err)
			}
			h.closeConn(ws, websocket.StatusInvalidFramePayloadData, "invalid transcript message")
			return
		}

		if err := writeJSON(ctx, ws, transcriptAck{Status: statusOK, ReceivedMs: h.now().UnixMilli()}); err != nil {
			h.logger.Debug("Failed to send ack", "error", err, "session_id", sessionID)
			return
		}
	}
}
