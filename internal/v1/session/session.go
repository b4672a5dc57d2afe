// Package session tracks every live connection as a Session and
// indexes them for the message handler.
//
// A Session is the server-side handle for one client connection. Its
// id doubles as the player id for the session's lifetime in a room; no
// re-identification across reconnects is provided.
package session

import (
	"sync"
	"time"
)

// Sink is the per-connection outbound capability a Session writes to.
// Send must not block: implementations enqueue the frame and report
// false if it was dropped. The transport layer implements Sink.
type Sink interface {
	Send(data []byte) bool
	Active() bool
}

const (
	defaultPlayerName  = "Anonymous"
	defaultPlayerColor = "#FFFFFF"
)

// Session represents one connected client.
//
// The id and sink are immutable after creation. Room membership and
// player presentation are mutable and guarded by a small RWMutex; they
// change rarely (join/leave) relative to how often they are read.
type Session struct {
	ID          string
	connectedAt time.Time
	sink        Sink

	mu            sync.RWMutex
	currentRoomID string
	playerName    string
	playerColor   string
}

func newSession(id string, sink Sink) *Session {
	return &Session{
		ID:          id,
		connectedAt: time.Now(),
		sink:        sink,
		playerName:  defaultPlayerName,
		playerColor: defaultPlayerColor,
	}
}

// ConnectedAt returns when the connection was accepted.
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Send submits an outbound payload to the connection's send sink
// without blocking. Returns false if the frame was dropped.
func (s *Session) Send(data []byte) bool {
	return s.sink.Send(data)
}

// Active reports whether the underlying connection is still open.
func (s *Session) Active() bool {
	return s.sink != nil && s.sink.Active()
}

// CurrentRoomID returns the id of the room the session is resident in,
// or "" if it is in none.
func (s *Session) CurrentRoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRoomID
}

// SetCurrentRoomID records the session's room membership.
func (s *Session) SetCurrentRoomID(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRoomID = roomID
}

// ClearRoom drops the session's room membership.
func (s *Session) ClearRoom() {
	s.SetCurrentRoomID("")
}

// InRoom reports whether the session is currently resident in a room.
func (s *Session) InRoom() bool {
	return s.CurrentRoomID() != ""
}

// PlayerName returns the session's display name.
func (s *Session) PlayerName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerName
}

// SetPlayerName records the display name chosen on join.
func (s *Session) SetPlayerName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerName = name
}

// PlayerColor returns the session's color.
func (s *Session) PlayerColor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerColor
}

// SetPlayerColor records the color chosen on join.
func (s *Session) SetPlayerColor(color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerColor = color
}
