package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ashureev/coachpad/internal/identity"
)

// wsObserver adapts a websocket connection to broadcast.Observer.
type wsObserver struct {
	id   string
	conn *websocket.Conn
}

func (o *wsObserver) ID() string { return o.id }

func (o *wsObserver) Send(ctx context.Context, payload []byte) error {
	return o.conn.Write(ctx, websocket.MessageText, payload)
}

func (o *wsObserver) Close() error {
	return o.conn.Close(websocket.StatusGoingAway, "observer dropped")
}

type controlMessage struct {
	Type string `json:"type"`
}

// ServeObserver registers the connection for periodic snapshot pushes and
// answers liveness pings until the client disconnects.
func (h *Handler) ServeObserver(w http.ResponseWriter, r *http.Request) {
	ws := h.accept(w, r, "ui")
	if ws == nil {
		return
	}
	defer h.closeConn(ws, websocket.StatusNormalClosure, "observer disconnected")

	sessionID := identity.SessionIDFromContext(r.Context())
	entry, release := h.sessions.Attach(sessionID)
	defer release()
	obs := &wsObserver{id: uuid.NewString(), conn: ws}

	ctx := r.Context()
	payload, err := json.Marshal(entry.Coordinator.Snapshot())
	if err == nil {
		if err := writeText(ctx, ws, string(payload)); err != nil {
			h.logger.Debug("Failed to send initial snapshot", "error", err, "observer_id", obs.id)
			return
		}
	}

	entry.Broadcaster.Register(obs)
	defer entry.Broadcaster.Unregister(obs.id)

	for {
		_, msg, err := ws.Read(ctx)
		if err != nil {
			h.logReadEnd(err, "ui", sessionID)
			return
		}

		text := strings.TrimSpace(string(msg))
		if text == "ping" {
			if err := writeText(ctx, ws, "pong"); err != nil {
				h.logger.Debug("Failed to send pong", "error", err, "observer_id", obs.id)
				return
			}
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(msg, &ctrl); err == nil && ctrl.Type == "ping" {
			if err := writeJSON(ctx, ws, controlMessage{Type: "pong"}); err != nil {
				h.logger.Debug("Failed to send pong", "error", err, "observer_id", obs.id)
				return
			}
		}
	}
}
