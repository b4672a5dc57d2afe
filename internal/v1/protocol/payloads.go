package protocol

import "encoding/json"

// PlayerInfo is the public view of one player's state.
// Used inside FULL_STATE and as the PLAYER_JOINED payload.
type PlayerInfo struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Color      string  `json:"color"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// JoinRoomPayload is the inbound JOIN_ROOM payload.
// Both fields are optional; the server picks defaults.
type JoinRoomPayload struct {
	PlayerName string `json:"playerName,omitempty"`
	Color      string `json:"color,omitempty"`
}

// StateUpdatePayload is the inbound STATE_UPDATE payload.
// Absent coordinates retain the player's current value, so pointers
// distinguish "absent" from zero.
type StateUpdatePayload struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// FullStatePayload carries the complete players table of a room.
type FullStatePayload struct {
	Players map[string]PlayerInfo `json:"players"`
}

// DeltaUpdatePayload carries only the changed fields per player.
type DeltaUpdatePayload struct {
	Players map[string]map[string]any `json:"players"`
}

// PlayerLeftPayload identifies a departed player.
type PlayerLeftPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// ErrorPayload carries a human-readable error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// DecodeJoinRoomPayload parses a JOIN_ROOM payload. A nil payload is
// valid and yields zero values.
func DecodeJoinRoomPayload(raw json.RawMessage) (JoinRoomPayload, error) {
	var p JoinRoomPayload
	if len(raw) == 0 {
		return p, nil
	}
	err := json.Unmarshal(raw, &p)
	return p, err
}

// DecodeStateUpdatePayload parses a STATE_UPDATE payload. A nil payload
// is valid and yields no changes.
func DecodeStateUpdatePayload(raw json.RawMessage) (StateUpdatePayload, error) {
	var p StateUpdatePayload
	if len(raw) == 0 {
		return p, nil
	}
	err := json.Unmarshal(raw, &p)
	return p, err
}
