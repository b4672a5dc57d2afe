package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/kasagi/statesync/internal/v1/session"
)

var errConnClosed = errors.New("connection closed")

type frame struct {
	messageType int
	data        []byte
}

// mockConn is an in-memory wsConnection: tests queue inbound frames and
// inspect what the pumps wrote.
type mockConn struct {
	inbound   chan frame
	closeCh   chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	written   []frame
	readLimit int64
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan frame, 16),
		closeCh: make(chan struct{}),
	}
}

func (m *mockConn) queue(messageType int, data []byte) {
	m.inbound <- frame{messageType, data}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	// Queued frames are delivered before a close is honored
	select {
	case f := <-m.inbound:
		return f.messageType, f.data, nil
	default:
	}
	select {
	case f := <-m.inbound:
		return f.messageType, f.data, nil
	case <-m.closeCh:
		return 0, nil, errConnClosed
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, frame{messageType, data})
	return nil
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.closeCh) })
	return nil
}

func (m *mockConn) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConn) SetReadDeadline(time.Time) error  { return nil }

func (m *mockConn) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *mockConn) SetPongHandler(func(string) error) {}

func (m *mockConn) writtenFrames() []frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]frame(nil), m.written...)
}

func (m *mockConn) lastWrittenType() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.written) == 0 {
		return 0, false
	}
	return m.written[len(m.written)-1].messageType, true
}

var _ wsConnection = (*mockConn)(nil)

// recordingHandler is a ConnectionHandler that records the transport's
// callbacks.
type recordingHandler struct {
	sessions *session.Registry

	mu          sync.Mutex
	received    [][]byte
	disconnects int
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{sessions: session.NewRegistry()}
}

func (h *recordingHandler) HandleConnect(conn session.Sink) *session.Session {
	return h.sessions.Create(conn)
}

func (h *recordingHandler) HandleMessage(_ session.Sink, raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, raw)
}

func (h *recordingHandler) HandleDisconnect(session.Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects++
}

func (h *recordingHandler) receivedFrames() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.received...)
}

func (h *recordingHandler) disconnectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnects
}

var _ ConnectionHandler = (*recordingHandler)(nil)

// track registers a client as if ServeWs had accepted it.
func track(h *Hub, c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}
