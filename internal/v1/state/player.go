// Package state implements the in-memory synchronization engine: the
// immutable per-player state values, the per-update deltas, the Room
// that owns them, and the registry of live rooms.
package state

import "time"

// PlayerState is the state of a single player in a room.
//
// PlayerState is immutable. Any mutation produces a new value via the
// With* constructors; existing values are never modified in place, so
// published instances can be read concurrently without locks.
type PlayerState struct {
	playerID       string
	playerName     string
	color          string
	x              float64
	y              float64
	lastUpdateTime int64
}

// NewPlayerState constructs a PlayerState stamped with the current
// wall clock in milliseconds.
func NewPlayerState(playerID, playerName, color string, x, y float64) PlayerState {
	return PlayerState{
		playerID:       playerID,
		playerName:     playerName,
		color:          color,
		x:              x,
		y:              y,
		lastUpdateTime: time.Now().UnixMilli(),
	}
}

func (p PlayerState) PlayerID() string      { return p.playerID }
func (p PlayerState) PlayerName() string    { return p.playerName }
func (p PlayerState) Color() string         { return p.color }
func (p PlayerState) X() float64            { return p.x }
func (p PlayerState) Y() float64            { return p.y }
func (p PlayerState) LastUpdateTime() int64 { return p.lastUpdateTime }

// WithPosition returns a new PlayerState at the given position.
func (p PlayerState) WithPosition(x, y float64) PlayerState {
	p.x = x
	p.y = y
	p.lastUpdateTime = time.Now().UnixMilli()
	return p
}

// WithName returns a new PlayerState with the given display name.
func (p PlayerState) WithName(name string) PlayerState {
	p.playerName = name
	p.lastUpdateTime = time.Now().UnixMilli()
	return p
}

// WithColor returns a new PlayerState with the given color.
func (p PlayerState) WithColor(color string) PlayerState {
	p.color = color
	p.lastUpdateTime = time.Now().UnixMilli()
	return p
}

// Equal reports field equality ignoring the bookkeeping timestamp.
func (p PlayerState) Equal(o PlayerState) bool {
	return p.playerID == o.playerID &&
		p.playerName == o.playerName &&
		p.color == o.color &&
		p.x == o.x &&
		p.y == o.y
}
