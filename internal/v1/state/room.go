package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/kasagi/statesync/internal/v1/logging"
)

// ErrPlayerIDMismatch reports an AddPlayer call whose state carries a
// player id different from the session id. The two are equal by
// construction; a mismatch is a caller bug, not a runtime condition.
var ErrPlayerIDMismatch = errors.New("state: player id does not match session id")

// Room is a named container of mutually visible player states and the
// unit of isolation and fan-out.
//
// Concurrency design, mirroring one room's independence from the rest
// of the server:
//   - players and sessionIDs are sync.Maps, so snapshots and point
//     reads never block writers
//   - version is an atomic counter
//   - mu covers only the sections that must be observed atomically:
//     membership changes and the read-old / compute-delta / install /
//     increment sequence of UpdatePlayerState. The critical section is
//     per-room; different rooms update in parallel.
type Room struct {
	ID        string
	createdAt time.Time

	players    sync.Map // player id -> PlayerState
	sessionIDs sync.Map // session id -> struct{}

	version     atomic.Int64
	playerCount atomic.Int64

	mu sync.Mutex
}

// NewRoom creates an empty room with version 0.
func NewRoom(roomID string) *Room {
	return &Room{
		ID:        roomID,
		createdAt: time.Now(),
	}
}

// --- Player Management ---

// AddPlayer inserts the session into the resident set and the player
// state under its player id, increments the version, and returns the
// new version. Adding an already-present session overwrites its state
// idempotently.
func (r *Room) AddPlayer(sessionID string, player PlayerState) (int64, error) {
	if player.PlayerID() != sessionID {
		return 0, ErrPlayerIDMismatch
	}

	r.mu.Lock()
	_, resident := r.sessionIDs.Load(sessionID)
	r.sessionIDs.Store(sessionID, struct{}{})
	r.players.Store(player.PlayerID(), player)
	if !resident {
		r.playerCount.Add(1)
	}
	newVersion := r.version.Add(1)
	r.mu.Unlock()

	logging.Info(logging.WithRoom(context.Background(), r.ID), "Player joined room",
		zap.String("playerName", player.PlayerName()),
		zap.Int64("version", newVersion))

	return newVersion, nil
}

// RemovePlayer removes the session and its player record and returns
// the removed state. Removing an absent player is a no-op: nothing is
// returned and the version does not move.
func (r *Room) RemovePlayer(sessionID, playerID string) (PlayerState, bool) {
	r.mu.Lock()
	prev, ok := r.players.LoadAndDelete(playerID)
	_, hadSession := r.sessionIDs.LoadAndDelete(sessionID)
	if ok != hadSession {
		// session id and player id are the same key by construction;
		// divergence means a caller passed mismatched ids
		logging.Error(context.Background(), "Room membership out of sync",
			zap.String("roomId", r.ID),
			zap.String("sessionId", sessionID),
			zap.String("playerId", playerID))
	}
	if ok || hadSession {
		r.playerCount.Add(-1)
		r.version.Add(1)
	}
	r.mu.Unlock()

	if !ok {
		return PlayerState{}, false
	}

	removed := prev.(PlayerState)
	logging.Info(logging.WithRoom(context.Background(), r.ID), "Player left room",
		zap.String("playerName", removed.PlayerName()))
	return removed, true
}

// UpdatePlayerState installs newState for the given player and returns
// the delta against the previous state, stamped with the version the
// update was assigned. Returns nil if no such player exists. An update
// that changes nothing installs nothing and leaves the version alone.
//
// The whole read-compare-install-increment sequence runs under the
// room mutex so concurrent observers see it as a single transition: no
// two updates share a version, and a snapshot taken mid-update sees
// either the full pre- or full post-state of the player.
func (r *Room) UpdatePlayerState(playerID string, newState PlayerState) *Delta {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.players.Load(playerID)
	if !ok {
		logging.Warn(context.Background(), "Attempted to update non-existent player",
			zap.String("roomId", r.ID), zap.String("playerId", playerID))
		return nil
	}
	oldState := prev.(PlayerState)

	// Calculate what changed before installing the update
	delta := computeDelta(playerID, oldState, newState)
	if !delta.HasChanges() {
		delta.Version = r.version.Load()
		return delta
	}

	r.players.Store(playerID, newState)
	delta.Version = r.version.Add(1)

	return delta
}

// --- State Retrieval ---

// GetPlayer returns a specific player's current state.
func (r *Room) GetPlayer(playerID string) (PlayerState, bool) {
	v, ok := r.players.Load(playerID)
	if !ok {
		return PlayerState{}, false
	}
	return v.(PlayerState), true
}

// AllPlayers returns a point-in-time snapshot of the players table.
// Safe to call while other goroutines mutate the room.
func (r *Room) AllPlayers() map[string]PlayerState {
	snapshot := make(map[string]PlayerState)
	r.players.Range(func(k, v any) bool {
		snapshot[k.(string)] = v.(PlayerState)
		return true
	})
	return snapshot
}

// SessionIDs returns a snapshot of the resident session ids.
func (r *Room) SessionIDs() set.Set[string] {
	ids := set.New[string]()
	r.sessionIDs.Range(func(k, _ any) bool {
		ids.Insert(k.(string))
		return true
	})
	return ids
}

// HasSession reports whether a session is resident in this room.
func (r *Room) HasSession(sessionID string) bool {
	_, ok := r.sessionIDs.Load(sessionID)
	return ok
}

// --- Room Info ---

func (r *Room) CreatedAt() time.Time { return r.createdAt }

func (r *Room) Version() int64 { return r.version.Load() }

func (r *Room) PlayerCount() int { return int(r.playerCount.Load()) }

func (r *Room) IsEmpty() bool { return r.playerCount.Load() == 0 }
