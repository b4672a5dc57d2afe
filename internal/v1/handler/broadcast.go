package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/kasagi/statesync/internal/v1/logging"
	"github.com/kasagi/statesync/internal/v1/metrics"
	"github.com/kasagi/statesync/internal/v1/protocol"
	"github.com/kasagi/statesync/internal/v1/session"
	"github.com/kasagi/statesync/internal/v1/state"
)

// sendFullState sends the complete players table of a room to one
// session, stamped with the room's current version. Sent to a player
// on join; version-aware clients may also use it to recover after
// missed deltas.
func (h *Handler) sendFullState(s *session.Session, room *state.Room) {
	players := make(map[string]protocol.PlayerInfo)
	for id, p := range room.AllPlayers() {
		players[id] = playerInfo(p)
	}

	msg, err := protocol.New(protocol.TypeFullState).
		WithRoom(room.ID).
		WithPlayer(s.ID).
		WithVersion(room.Version()).
		WithPayload(protocol.FullStatePayload{Players: players})
	if err != nil {
		logging.Error(context.Background(), "Failed to build full state", zap.Error(err))
		return
	}

	h.sendTo(s.ID, s, msg)
}

// broadcastPlayerJoined notifies the other residents of a new player.
func (h *Handler) broadcastPlayerJoined(room *state.Room, joinedSessionID string, player state.PlayerState) {
	msg, err := protocol.New(protocol.TypePlayerJoined).
		WithRoom(room.ID).
		WithVersion(room.Version()).
		WithPayload(playerInfo(player))
	if err != nil {
		logging.Error(context.Background(), "Failed to build player joined", zap.Error(err))
		return
	}

	h.broadcastToRoom(room, joinedSessionID, msg)
}

// broadcastPlayerLeft notifies the remaining residents of a departure.
func (h *Handler) broadcastPlayerLeft(room *state.Room, leftSessionID, playerName string) {
	msg, err := protocol.New(protocol.TypePlayerLeft).
		WithRoom(room.ID).
		WithVersion(room.Version()).
		WithPayload(protocol.PlayerLeftPayload{
			PlayerID:   leftSessionID,
			PlayerName: playerName,
		})
	if err != nil {
		logging.Error(context.Background(), "Failed to build player left", zap.Error(err))
		return
	}

	h.broadcastToRoom(room, leftSessionID, msg)
}

// broadcastDelta sends the changed fields of one player to every
// resident except the sender. The sender's local apply is implicit.
func (h *Handler) broadcastDelta(room *state.Room, senderSessionID string, delta *state.Delta) {
	msg, err := protocol.New(protocol.TypeDeltaUpdate).
		WithRoom(room.ID).
		WithVersion(delta.Version).
		WithPayload(protocol.DeltaUpdatePayload{
			Players: map[string]map[string]any{delta.PlayerID: delta.Changes},
		})
	if err != nil {
		logging.Error(context.Background(), "Failed to build delta update", zap.Error(err))
		return
	}

	h.broadcastToRoom(room, senderSessionID, msg)
}

// sendError answers the sender with a human-readable error. The
// connection stays open; nothing else observes the failure.
func (h *Handler) sendError(s *session.Session, errorMessage string) {
	msg, err := protocol.New(protocol.TypeError).
		WithPayload(protocol.ErrorPayload{Message: errorMessage})
	if err != nil {
		logging.Error(context.Background(), "Failed to build error message", zap.Error(err))
		return
	}

	h.sendTo(s.ID, s, msg)
}

// broadcastToRoom delivers one message to every resident of the room
// except excludeSessionID. The resident set is snapshotted first;
// sessions that vanished or went inactive since are skipped. A failed
// send to one recipient never aborts the fan-out.
func (h *Handler) broadcastToRoom(room *state.Room, excludeSessionID string, msg protocol.Message) {
	raw, err := msg.Encode()
	if err != nil {
		logging.Error(context.Background(), "Failed to encode broadcast", zap.Error(err))
		return
	}

	metrics.Broadcasts.WithLabelValues(string(msg.Type)).Inc()

	for _, sessionID := range room.SessionIDs().UnsortedList() {
		if sessionID == excludeSessionID {
			continue
		}
		target, ok := h.sessions.GetByID(sessionID)
		if !ok || !target.Active() {
			continue
		}
		if !target.Send(raw) {
			logging.Warn(logging.WithSession(context.Background(), sessionID),
				"Dropped broadcast frame", zap.String("type", string(msg.Type)))
		}
	}
}

// sendTo serializes and submits a message to a single session.
func (h *Handler) sendTo(sessionID string, s *session.Session, msg protocol.Message) {
	raw, err := msg.Encode()
	if err != nil {
		logging.Error(context.Background(), "Failed to encode message", zap.Error(err))
		return
	}
	if !s.Send(raw) {
		logging.Warn(logging.WithSession(context.Background(), sessionID),
			"Dropped frame", zap.String("type", string(msg.Type)))
	}
}

func playerInfo(p state.PlayerState) protocol.PlayerInfo {
	return protocol.PlayerInfo{
		PlayerID:   p.PlayerID(),
		PlayerName: p.PlayerName(),
		Color:      p.Color(),
		X:          p.X(),
		Y:          p.Y(),
	}
}
