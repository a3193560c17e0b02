package ws

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to websocket connections.
type Handler struct {
	hub      *Hub
	session  Session
	upgrader websocket.Upgrader
}

// NewHandler creates a handler. An empty allowedOrigins, or one containing "*", accepts any origin.
func NewHandler(hub *Hub, s Session, allowedOrigins []string) *Handler {
	return &Handler{
		hub:     hub,
		session: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 ||
					slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "ws: upgrade failed", "error", err)
		return
	}

	c := NewClient(conn, h.session, h.hub, uuid.NewString())
	if !h.hub.Register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	c.Send(NewServerMessage(MsgConnected, &ConnectedPayload{
		PlayerID: c.id,
		State:    h.session.State(),
	}))

	slog.InfoContext(r.Context(), "ws: client connected",
		"client_id", c.id,
		"remote_addr", r.RemoteAddr,
	)

	c.Run(context.WithoutCancel(r.Context()))

	slog.InfoContext(r.Context(), "ws: client disconnected", "client_id", c.id)
}
