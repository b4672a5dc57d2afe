package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	reg := NewRegistry()

	r1 := reg.GetOrCreate("room-a")
	r2 := reg.GetOrCreate("room-a")

	assert.Same(t, r1, r2)
	assert.Equal(t, 1, reg.RoomCount())
}

func TestRegistry_GetOrCreate_Concurrent(t *testing.T) {
	reg := NewRegistry()

	const workers = 32
	results := make(chan *Room, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- reg.GetOrCreate("room-a")
		}()
	}
	wg.Wait()
	close(results)

	first := <-results
	for r := range results {
		assert.Same(t, first, r)
	}
	assert.Equal(t, 1, reg.RoomCount())
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Get("missing")
	assert.False(t, ok)

	created := reg.GetOrCreate("room-a")
	got, ok := reg.Get("room-a")
	require.True(t, ok)
	assert.Same(t, created, got)
}

func TestRegistry_RemoveIfEmpty(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("room-a")

	_, err := r.AddPlayer("s1", NewPlayerState("s1", "Alice", "#FF0000", 0, 0))
	require.NoError(t, err)

	// An occupied room survives the sweep
	assert.False(t, reg.RemoveIfEmpty("room-a"))
	assert.Equal(t, 1, reg.RoomCount())

	r.RemovePlayer("s1", "s1")

	assert.True(t, reg.RemoveIfEmpty("room-a"))
	assert.Equal(t, 0, reg.RoomCount())

	// Removing an unknown room is a no-op
	assert.False(t, reg.RemoveIfEmpty("room-a"))
}

func TestRegistry_TotalPlayerCount(t *testing.T) {
	reg := NewRegistry()
	a := reg.GetOrCreate("room-a")
	b := reg.GetOrCreate("room-b")

	_, err := a.AddPlayer("s1", NewPlayerState("s1", "P", "#FFFFFF", 0, 0))
	require.NoError(t, err)
	_, err = a.AddPlayer("s2", NewPlayerState("s2", "P", "#FFFFFF", 0, 0))
	require.NoError(t, err)
	_, err = b.AddPlayer("s3", NewPlayerState("s3", "P", "#FFFFFF", 0, 0))
	require.NoError(t, err)

	assert.Equal(t, 3, reg.TotalPlayerCount())
	assert.Equal(t, 2, reg.RoomCount())
	assert.Len(t, reg.AllRooms(), 2)
}
