package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"chatroom-service/internal/chat"
	"chatroom-service/pkg/logger"

	"github.com/gorilla/websocket"
)

// Coordinator is what the transport needs from the chat room.
type Coordinator interface {
	Authenticate(ctx context.Context, credential string) (chat.Identity, error)
	Admit(ctx context.Context, conn chat.Connection, id chat.Identity) error
	Disconnect(connectionID string)
	HandleFrame(ctx context.Context, connectionID string, frame []byte)
	SendError(connectionID, text string)
}

type Server struct {
	hub      Coordinator
	upgrader *websocket.Upgrader
	settings Settings
	log      *logger.Logger
}

func NewServer(hub Coordinator, allowedOrigins []string, settings Settings, log *logger.Logger) *Server {
	return &Server{
		hub:      hub,
		upgrader: NewUpgrader(allowedOrigins),
		settings: settings,
		log:      log,
	}
}

// ServeHTTP authenticates the handshake, upgrades, and then blocks running the
// connection's read pump.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}
	if !s.upgrader.CheckOrigin(r) {
		s.log.Info("websocket origin rejected", "origin", r.Header.Get("Origin"))
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	// A bad credential is refused with a plain 401 before the upgrade.
	identity, err := s.hub.Authenticate(r.Context(), TokenFromRequest(r))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrAuthentication) || errors.Is(err, chat.ErrProfileNotFound) {
			status = http.StatusUnauthorized
		}
		s.log.Info("websocket handshake refused", "remote", r.RemoteAddr, "status", status, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(s.settings, s.log)
	client.conn = conn
	go client.writePump()

	// Only an open socket is admitted, so nobody is announced for a
	// handshake that never completed.
	if err := s.hub.Admit(r.Context(), client, identity); err != nil {
		s.log.Warn("websocket admission refused", "connectionID", client.ID(), "error", err)
		client.closeWith(websocket.ClosePolicyViolation, "connection refused")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.readPump(ctx, s.hub)
}

// TokenFromRequest reads the bearer credential from ?token= or the
// Authorization header, in that order.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
