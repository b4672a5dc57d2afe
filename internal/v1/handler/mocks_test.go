package handler

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kasagi/statesync/internal/v1/protocol"
	"github.com/kasagi/statesync/internal/v1/session"
	"github.com/kasagi/statesync/internal/v1/state"
)

// mockSink captures outbound frames for assertions.
type mockSink struct {
	mu     sync.Mutex
	frames [][]byte
	active bool
	accept bool
}

func newMockSink() *mockSink {
	return &mockSink{active: true, accept: true}
}

func (m *mockSink) Send(data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.accept {
		return false
	}
	m.frames = append(m.frames, data)
	return true
}

func (m *mockSink) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// messages decodes every captured frame.
func (m *mockSink) messages(t *testing.T) []protocol.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]protocol.Message, 0, len(m.frames))
	for _, raw := range m.frames {
		msg, err := protocol.Decode(raw)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

// lastOfType returns the most recent message of the given type.
func (m *mockSink) lastOfType(t *testing.T, typ protocol.Type) (protocol.Message, bool) {
	t.Helper()
	msgs := m.messages(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == typ {
			return msgs[i], true
		}
	}
	return protocol.Message{}, false
}

func (m *mockSink) frameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func (m *mockSink) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

// fixedSpawner pins spawn position and color so joins are deterministic.
type fixedSpawner struct {
	x, y  float64
	color string
}

func (f fixedSpawner) Position() (float64, float64) { return f.x, f.y }
func (f fixedSpawner) Color() string                { return f.color }

// harness wires a Handler over fresh registries with a fixed spawner.
type harness struct {
	h        *Handler
	sessions *session.Registry
	rooms    *state.Registry
}

func newHarness() *harness {
	sessions := session.NewRegistry()
	rooms := state.NewRegistry()
	return &harness{
		h:        New(sessions, rooms, WithSpawner(fixedSpawner{x: 400, y: 300, color: "#4ECDC4"})),
		sessions: sessions,
		rooms:    rooms,
	}
}

func (hr *harness) connect() (*mockSink, *session.Session) {
	sink := newMockSink()
	s := hr.h.HandleConnect(sink)
	return sink, s
}

func joinFrame(roomID, playerName, color string) []byte {
	return fmt.Appendf(nil, `{"type":"JOIN_ROOM","roomId":%q,"payload":{"playerName":%q,"color":%q}}`,
		roomID, playerName, color)
}

func moveFrame(x, y float64) []byte {
	return fmt.Appendf(nil, `{"type":"STATE_UPDATE","payload":{"x":%g,"y":%g}}`, x, y)
}

func decodePayload[T any](t *testing.T, msg protocol.Message) T {
	t.Helper()
	var p T
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p
}
