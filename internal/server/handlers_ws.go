package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/gunturachievement/socket-io-roconal/internal/domain"
	"github.com/gunturachievement/socket-io-roconal/internal/logging"
)

const maxClientMessageSize = 4096

// The relay fronts a backend that serves browsers from other origins, so
// any origin may connect (room names are opaque, no viewer auth).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection, registers the session with the
// hub and runs the read pump until disconnect. Clients may send
// {"type":"join","room":...} and {"type":"leave","room":...}; everything
// else is ignored.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("Failed to upgrade websocket", "error", err)
		return nil
	}

	sessionID := uuid.New()
	if err := s.hub.Register(sessionID, conn); err != nil {
		// Connection already closed by the hub.
		slog.Warn("Failed to register session", "session_id", sessionID.String(), "error", err)
		return nil
	}
	sessionLog := logging.WithSession(sessionID.String())
	sessionLog.Info("Client connected")

	conn.SetReadLimit(maxClientMessageSize)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "join":
			s.hub.Join(sessionID, msg.Room)
		case "leave":
			s.hub.Leave(sessionID, msg.Room)
		}
	}

	s.hub.Unregister(sessionID)
	sessionLog.Info("Client disconnected")

	return nil
}
