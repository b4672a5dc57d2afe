// Package transport accepts WebSocket connections at /sync and shuttles
// frames between the network and the message handler. It owns all I/O;
// the handler and the state engine behind it never block on the wire.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kasagi/statesync/internal/v1/logging"
	"github.com/kasagi/statesync/internal/v1/metrics"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait closes a connection that produced no inbound frame for
	// this long. Write-idle does not force closure.
	pongWait = 60 * time.Second

	// pingPeriod keeps well-behaved clients alive; must be under pongWait.
	pingPeriod = 30 * time.Second

	// maxFrameSize caps inbound frames.
	maxFrameSize = 65536
)

// wsConnection is the subset of *websocket.Conn the client uses.
// Mock implementations stand in for it in tests.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
}

// Client pairs one WebSocket connection with its send queue. It
// implements session.Sink: the handler pushes outbound payloads into
// the buffered send channel and the writePump drains them onto the
// wire, so a slow consumer never blocks a broadcast.
type Client struct {
	conn wsConnection
	hub  *Hub

	send chan []byte

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func newClient(conn wsConnection, hub *Hub, sendBufferSize int) *Client {
	return &Client{
		conn: conn,
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

// Send enqueues a text frame for transmission without blocking.
// Returns false if the client is closed or its buffer is saturated;
// the frame is dropped and delivery stays best-effort per message.
func (c *Client) Send(data []byte) bool {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	c.mu.RUnlock()

	// The channel can be closed between the check and the send; recover
	// keeps a racing disconnect from tearing down the broadcaster.
	ok := false
	func() {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		select {
		case c.send <- data:
			ok = true
		default:
			metrics.DroppedSends.Inc()
		}
	}()
	return ok
}

// Active reports whether the connection is still open.
func (c *Client) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Disconnect closes the send queue, which drives the writePump to emit
// a close frame and drop the connection. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump delivers inbound text frames to the handler in arrival
// order. It runs as the sole reader of the connection, so frames from
// one connection are processed by at most one worker at a time.
func (c *Client) readPump() {
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn(context.Background(), "Connection closed unexpectedly", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		// The protocol is text-only JSON
		if messageType != websocket.TextMessage {
			logging.Warn(context.Background(), "Unsupported frame type, closing connection",
				zap.Int("messageType", messageType))
			return
		}

		c.hub.handler.HandleMessage(c, data)
	}
}

// writePump drains the send queue onto the wire and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.Error(context.Background(), "error writing message", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
