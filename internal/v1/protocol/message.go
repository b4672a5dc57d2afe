// Package protocol defines the JSON wire format of the sync protocol.
//
// Every WebSocket text frame carries exactly one Message. Payloads are
// kept as raw JSON on the envelope and decoded by the receiving side
// according to the message type. Encoding is stateless and safe for
// concurrent use.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type identifies a protocol message.
type Type string

// Client → Server
const (
	TypeJoinRoom    Type = "JOIN_ROOM"
	TypeLeaveRoom   Type = "LEAVE_ROOM"
	TypeStateUpdate Type = "STATE_UPDATE"
)

// Server → Client
const (
	TypeFullState    Type = "FULL_STATE"
	TypeDeltaUpdate  Type = "DELTA_UPDATE"
	TypePlayerJoined Type = "PLAYER_JOINED"
	TypePlayerLeft   Type = "PLAYER_LEFT"
	TypeError        Type = "ERROR"
)

// ErrMissingType reports an inbound frame without a "type" field.
var ErrMissingType = errors.New("protocol: message has no type")

// Message is the envelope carried by every frame.
//
// Null fields are omitted on output; unknown fields on input are
// ignored by encoding/json.
type Message struct {
	Type      Type            `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	PlayerID  string          `json:"playerId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Version   int64           `json:"version,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Decode parses a raw inbound frame into a Message.
// It fails on malformed JSON or a missing type field.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("protocol: decode: %w", err)
	}
	if msg.Type == "" {
		return Message{}, ErrMissingType
	}
	return msg, nil
}

// Encode serializes the message for the wire.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// New builds an outbound message of the given type, stamped with the
// current wall clock in milliseconds.
func New(t Type) Message {
	return Message{
		Type:      t,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRoom sets the room id.
func (m Message) WithRoom(roomID string) Message {
	m.RoomID = roomID
	return m
}

// WithPlayer sets the player id.
func (m Message) WithPlayer(playerID string) Message {
	m.PlayerID = playerID
	return m
}

// WithVersion sets the room version the message reports.
func (m Message) WithVersion(version int64) Message {
	m.Version = version
	return m
}

// WithPayload marshals the payload onto the envelope.
// Marshal failures of the typed payload structs below cannot happen at
// runtime; the error is still surfaced for hand-built payloads.
func (m Message) WithPayload(payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return m, fmt.Errorf("protocol: encode payload: %w", err)
	}
	m.Payload = raw
	return m, nil
}
