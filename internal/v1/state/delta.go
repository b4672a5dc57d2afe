package state

import "time"

// Delta describes what changed between two successive PlayerStates for
// one player, stamped with the room version at which it took effect.
//
// Sending only the changed fields instead of the full state keeps the
// hot path cheap on the wire; clients use the version to detect missed
// updates and request a full resync.
type Delta struct {
	PlayerID  string
	Changes   map[string]any
	Version   int64
	Timestamp int64
}

func newDelta(playerID string) *Delta {
	return &Delta{
		PlayerID:  playerID,
		Changes:   make(map[string]any),
		Timestamp: time.Now().UnixMilli(),
	}
}

// HasChanges reports whether any field changed. Empty deltas must not
// be broadcast.
func (d *Delta) HasChanges() bool {
	return len(d.Changes) > 0
}

// computeDelta compares two states field by field. Only changed fields
// are included. Floats compare with IEEE inequality, so a NaN input
// always registers as changed. The bookkeeping timestamp is never part
// of a delta.
func computeDelta(playerID string, oldState, newState PlayerState) *Delta {
	delta := newDelta(playerID)

	if oldState.x != newState.x {
		delta.Changes["x"] = newState.x
	}
	if oldState.y != newState.y {
		delta.Changes["y"] = newState.y
	}
	if oldState.color != newState.color {
		delta.Changes["color"] = newState.color
	}
	if oldState.playerName != newState.playerName {
		delta.Changes["playerName"] = newState.playerName
	}

	return delta
}
