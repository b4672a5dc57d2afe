package transport

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kasagi/statesync/internal/v1/logging"
	"github.com/kasagi/statesync/internal/v1/session"
)

// ConnectionHandler is the boundary between the transport and the sync
// core. The Hub calls it once on accept, once per inbound text frame,
// and once on close.
type ConnectionHandler interface {
	HandleConnect(conn session.Sink) *session.Session
	HandleMessage(conn session.Sink, raw []byte)
	HandleDisconnect(conn session.Sink)
}

// Hub accepts WebSocket connections and tracks the live clients so a
// shutdown can drain them.
type Hub struct {
	handler        ConnectionHandler
	upgrader       websocket.Upgrader
	sendBufferSize int

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates a Hub driving the given handler. allowedOrigins is a
// comma-separated whitelist; empty allows every origin.
func NewHub(h ConnectionHandler, allowedOrigins string, sendBufferSize int) *Hub {
	return &Hub{
		handler: h,
		upgrader: websocket.Upgrader{
			HandshakeTimeout:  10 * time.Second,
			ReadBufferSize:    1024,
			WriteBufferSize:   1024,
			EnableCompression: true,
			CheckOrigin:       originChecker(allowedOrigins),
		},
		sendBufferSize: sendBufferSize,
		clients:        make(map[*Client]struct{}),
	}
}

// ServeWs upgrades the request and starts the connection's pumps.
// GET /sync
func (h *Hub) ServeWs(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		logging.Warn(c.Request.Context(), "WebSocket handshake failed", zap.Error(err))
		return
	}

	client := newClient(conn, h, h.sendBufferSize)

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	s := h.handler.HandleConnect(client)
	logging.Info(logging.WithSession(c.Request.Context(), s.ID), "New connection",
		zap.String("remoteAddr", c.Request.RemoteAddr))

	go client.writePump()
	go client.readPump()
}

// dropClient runs the disconnect path exactly once per connection.
func (h *Hub) dropClient(c *Client) {
	h.mu.Lock()
	_, tracked := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !tracked {
		return
	}

	c.Disconnect()
	h.handler.HandleDisconnect(c)
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown drains all live connections. Each drained connection runs
// the same leave semantics as a client-initiated close.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	logging.Info(ctx, "Shutting down transport - draining connections",
		zap.Int("count", len(clients)))

	for _, c := range clients {
		h.dropClient(c)
	}
	return nil
}

// originChecker builds the CheckOrigin hook for the upgrader. With no
// whitelist every origin is accepted; browser-facing deployments set
// ALLOWED_ORIGINS.
func originChecker(allowedOrigins string) func(*http.Request) bool {
	trimmed := strings.TrimSpace(allowedOrigins)
	if trimmed == "" {
		return func(*http.Request) bool { return true }
	}

	allowed := make(map[string]struct{})
	for _, origin := range strings.Split(trimmed, ",") {
		allowed[strings.TrimSpace(origin)] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser client
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
