package handler

import "math/rand"

// Spawner picks the initial position and fallback color for a joining
// player. Injectable so tests can make joins deterministic without
// changing the external semantics.
type Spawner interface {
	Position() (x, y float64)
	Color() string
}

// spawnPalette is the fallback color set for players that join without
// choosing one.
var spawnPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
}

// randomSpawner scatters players uniformly over the game area.
type randomSpawner struct{}

func (randomSpawner) Position() (float64, float64) {
	return rand.Float64() * 800, rand.Float64() * 600
}

func (randomSpawner) Color() string {
	return spawnPalette[rand.Intn(len(spawnPalette))]
}
