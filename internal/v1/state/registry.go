package state

import (
	"context"
	"sync"

	"github.com/kasagi/statesync/internal/v1/logging"
	"github.com/kasagi/statesync/internal/v1/metrics"
)

// Registry tracks all live rooms in the server.
//
// Rooms are created on demand when the first player joins and removed
// once empty. Each room is independent; the registry mutex only guards
// the map itself, never room state, so room operations in different
// rooms proceed in parallel. The registry never holds references to
// sessions.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the room with the given id, creating and
// installing it first if needed. Concurrent callers with the same id
// receive the identical Room instance.
func (reg *Registry) GetOrCreate(roomID string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[roomID]; ok {
		return r
	}

	logging.Info(logging.WithRoom(context.Background(), roomID), "Creating new room")
	r := NewRoom(roomID)
	reg.rooms[roomID] = r
	metrics.ActiveRooms.Inc()
	return r
}

// Get returns a room by id.
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	return r, ok
}

// RemoveIfEmpty removes the room iff its player count is zero at the
// moment of the check. Returns true if the room was removed.
func (reg *Registry) RemoveIfEmpty(roomID string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[roomID]
	if !ok || !r.IsEmpty() {
		return false
	}

	delete(reg.rooms, roomID)
	metrics.ActiveRooms.Dec()
	metrics.RoomPlayers.DeleteLabelValues(roomID)
	logging.Info(logging.WithRoom(context.Background(), roomID), "Removed empty room")
	return true
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// TotalPlayerCount returns the player count summed across all rooms.
// Useful for monitoring.
func (reg *Registry) TotalPlayerCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	total := 0
	for _, r := range reg.rooms {
		total += r.PlayerCount()
	}
	return total
}

// AllRooms returns a snapshot of the live rooms.
func (reg *Registry) AllRooms() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}
