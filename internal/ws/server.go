package ws

import (
	"net/http"
	"net/url"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/sirupsen/logrus"

	"ploxora/internal/auth"
)

// AdminRoom holds the connections of administrators
const AdminRoom = "admins"

// Hub is the Socket.IO server pushing panel events to connected clients
type Hub struct {
	server  *socketio.Server
	tokens  *auth.RealtimeTokens
	history History
	logger  *logrus.Entry
}

// NewHub creates the Socket.IO server. history may be nil.
func NewHub(history History, tokens *auth.RealtimeTokens, logger *logrus.Entry) *Hub {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	allowOrigin := func(r *http.Request) bool { return true }
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&polling.Transport{CheckOrigin: allowOrigin},
			&websocket.Transport{CheckOrigin: allowOrigin},
		},
	})

	h := &Hub{
		server:  server,
		tokens:  tokens,
		history: history,
		logger:  logger.WithField("component", "ws"),
	}

	server.OnConnect("/", h.onConnect)
	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		h.logger.Debugf("Client disconnected: %s, reason: %s", s.ID(), reason)
	})
	server.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			h.logger.WithError(e).Warn("Socket.IO error")
			return
		}
		h.logger.WithError(e).Warnf("Error for client %s", s.ID())
	})
	server.OnEvent("/", "request:audit", h.handleRequestAudit)

	return h
}

// the handshake already validated the token, this only decides room membership
func (h *Hub) onConnect(s socketio.Conn) error {
	u := s.URL()
	claims, err := h.tokens.Parse(tokenFromQuery(&u))
	if err == nil {
		s.SetContext(claims)
		if claims.Admin() {
			s.Join(AdminRoom)
		}
	}
	h.logger.Debugf("Client connected: %s", s.ID())
	s.Emit("connected", map[string]interface{}{"ok": true})
	return nil
}

// Start runs the Socket.IO event loop in the background
func (h *Hub) Start() {
	go func() {
		if err := h.server.Serve(); err != nil {
			h.logger.WithError(err).Error("Socket.IO server stopped")
		}
	}()
	h.logger.Info("Socket.IO server started")
}

// Close stops the server
func (h *Hub) Close() error {
	return h.server.Close()
}

// Handler returns the Socket.IO endpoint guarded by the realtime token
func (h *Hub) Handler() http.Handler {
	return RequireToken(h.server, h.tokens, h.logger)
}

// Broadcast sends an event to every connected administrator
func (h *Hub) Broadcast(event string, data any) {
	h.server.BroadcastToRoom("/", AdminRoom, event, data)
}

func tokenFromQuery(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Query().Get("token")
}
