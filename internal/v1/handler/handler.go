// Package handler implements the message handler: it parses inbound
// frames, mutates room state, and fans outbound messages out to the
// residents of a room.
//
// The handler is driven by the transport layer, which guarantees that
// frames from a single connection arrive in order and one at a time.
// Across connections there is no ordering; every state operation the
// handler performs is non-blocking so it never starves the transport's
// worker pool.
package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kasagi/statesync/internal/v1/logging"
	"github.com/kasagi/statesync/internal/v1/metrics"
	"github.com/kasagi/statesync/internal/v1/protocol"
	"github.com/kasagi/statesync/internal/v1/session"
	"github.com/kasagi/statesync/internal/v1/state"
)

// Handler routes inbound messages to the state engine and produces the
// outbound traffic they induce. It owns no state of its own; all state
// lives in the two registries.
type Handler struct {
	sessions *session.Registry
	rooms    *state.Registry
	spawn    Spawner
}

// Option configures a Handler.
type Option func(*Handler)

// WithSpawner replaces the default random spawn source. Tests use this
// to pin initial positions and colors.
func WithSpawner(s Spawner) Option {
	return func(h *Handler) {
		h.spawn = s
	}
}

// New creates a Handler over the given registries.
func New(sessions *session.Registry, rooms *state.Registry, opts ...Option) *Handler {
	h := &Handler{
		sessions: sessions,
		rooms:    rooms,
		spawn:    &randomSpawner{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleConnect registers a freshly accepted connection and returns
// its session. Called once per connection by the transport.
func (h *Handler) HandleConnect(conn session.Sink) *session.Session {
	s := h.sessions.Create(conn)
	metrics.IncConnection()
	return s
}

// HandleDisconnect runs the leave sequence for the session's current
// room, if any, then drops the session. Safe to call after an explicit
// leave; the second leave is a no-op.
func (h *Handler) HandleDisconnect(conn session.Sink) {
	s, ok := h.sessions.Remove(conn)
	if !ok {
		return
	}
	metrics.DecConnection()

	h.leaveCurrentRoom(s)
	logging.Info(logging.WithSession(context.Background(), s.ID), "Player disconnected",
		zap.String("playerName", s.PlayerName()))
}

// HandleMessage parses one inbound text frame and routes it. All
// client-induced errors are answered on the sender's connection and
// never crash the server or leak into other connections.
func (h *Handler) HandleMessage(conn session.Sink, raw []byte) {
	s, ok := h.sessions.GetByConn(conn)
	if !ok {
		logging.Error(context.Background(), "Received message from unknown connection")
		return
	}

	msg, err := protocol.Decode(raw)
	if err != nil {
		logging.Warn(logging.WithSession(context.Background(), s.ID), "Failed to decode message",
			zap.Error(err))
		metrics.Messages.WithLabelValues("unknown", "error").Inc()
		h.sendError(s, "Invalid message format")
		return
	}

	start := time.Now()
	status := "success"
	switch msg.Type {
	case protocol.TypeJoinRoom:
		status = h.handleJoinRoom(s, msg)
	case protocol.TypeLeaveRoom:
		h.leaveCurrentRoom(s)
	case protocol.TypeStateUpdate:
		status = h.handleStateUpdate(s, msg)
	default:
		logging.Warn(logging.WithSession(context.Background(), s.ID), "Unknown message type",
			zap.String("type", string(msg.Type)))
		h.sendError(s, "Unknown message type: "+string(msg.Type))
		status = "error"
	}

	metrics.MessageProcessingDuration.WithLabelValues(string(msg.Type)).Observe(time.Since(start).Seconds())
	metrics.Messages.WithLabelValues(string(msg.Type), status).Inc()
}

// handleJoinRoom admits the session into a room, seeding its player
// state. Joining while resident elsewhere leaves the old room first.
func (h *Handler) handleJoinRoom(s *session.Session, msg protocol.Message) string {
	if msg.RoomID == "" {
		h.sendError(s, "Room ID is required")
		return "error"
	}

	payload, err := protocol.DecodeJoinRoomPayload(msg.Payload)
	if err != nil {
		h.sendError(s, "Invalid message format")
		return "error"
	}

	if s.InRoom() {
		h.leaveCurrentRoom(s)
	}

	playerName := payload.PlayerName
	if playerName == "" {
		playerName = "Player-" + s.ID[:8]
	}
	playerColor := payload.Color
	if playerColor == "" {
		playerColor = h.spawn.Color()
	}

	s.SetPlayerName(playerName)
	s.SetPlayerColor(playerColor)
	s.SetCurrentRoomID(msg.RoomID)

	x, y := h.spawn.Position()
	player := state.NewPlayerState(s.ID, playerName, playerColor, x, y)

	room := h.rooms.GetOrCreate(msg.RoomID)
	if _, err := room.AddPlayer(s.ID, player); err != nil {
		// unreachable while player id is seeded from the session id
		logging.Error(context.Background(), "Failed to add player", zap.Error(err))
		h.sendError(s, "Failed to join room")
		return "error"
	}
	metrics.RoomPlayers.WithLabelValues(room.ID).Set(float64(room.PlayerCount()))

	h.sendFullState(s, room)
	h.broadcastPlayerJoined(room, s.ID, player)

	ctx := logging.WithRoom(logging.WithSession(context.Background(), s.ID), room.ID)
	logging.Info(ctx, "Player joined",
		zap.String("playerName", playerName),
		zap.Int("playerCount", room.PlayerCount()))
	return "success"
}

// leaveCurrentRoom removes the session's player from its current room
// and notifies the remaining residents. A session in no room is a
// no-op with no broadcast.
func (h *Handler) leaveCurrentRoom(s *session.Session) {
	roomID := s.CurrentRoomID()
	if roomID == "" {
		return
	}

	if room, ok := h.rooms.Get(roomID); ok {
		if removed, ok := room.RemovePlayer(s.ID, s.ID); ok {
			metrics.RoomPlayers.WithLabelValues(room.ID).Set(float64(room.PlayerCount()))
			h.broadcastPlayerLeft(room, s.ID, removed.PlayerName())
		}
		h.rooms.RemoveIfEmpty(roomID)
	}

	s.ClearRoom()
	ctx := logging.WithRoom(logging.WithSession(context.Background(), s.ID), roomID)
	logging.Info(ctx, "Player left", zap.String("playerName", s.PlayerName()))
}

// handleStateUpdate is the hot path: overlay the payload onto the
// player's current state, install it, and broadcast the delta.
func (h *Handler) handleStateUpdate(s *session.Session, msg protocol.Message) string {
	roomID := s.CurrentRoomID()
	if roomID == "" {
		h.sendError(s, "Not in a room")
		return "error"
	}

	room, ok := h.rooms.Get(roomID)
	if !ok {
		h.sendError(s, "Room not found")
		return "error"
	}

	payload, err := protocol.DecodeStateUpdatePayload(msg.Payload)
	if err != nil {
		h.sendError(s, "Invalid message format")
		return "error"
	}

	current, ok := room.GetPlayer(s.ID)
	if !ok {
		// benign race with a disconnect; nothing to update
		return "ignored"
	}

	// Fields absent from the payload retain their current value
	newX := current.X()
	if payload.X != nil {
		newX = *payload.X
	}
	newY := current.Y()
	if payload.Y != nil {
		newY = *payload.Y
	}

	delta := room.UpdatePlayerState(s.ID, current.WithPosition(newX, newY))
	if delta != nil && delta.HasChanges() {
		h.broadcastDelta(room, s.ID, delta)
	}
	return "success"
}
