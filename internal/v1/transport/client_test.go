package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendDropsOnFullBuffer(t *testing.T) {
	c := newClient(newMockConn(), NewHub(newRecordingHandler(), "", 2), 2)

	assert.True(t, c.Send([]byte("one")))
	assert.True(t, c.Send([]byte("two")))
	// No writePump is draining, so the third frame has nowhere to go
	assert.False(t, c.Send([]byte("three")))

	c.Disconnect()
}

func TestClient_SendAfterDisconnect(t *testing.T) {
	c := newClient(newMockConn(), NewHub(newRecordingHandler(), "", 8), 8)

	assert.True(t, c.Active())
	c.Disconnect()

	assert.False(t, c.Active())
	assert.False(t, c.Send([]byte("late")))

	// A second disconnect is a no-op
	c.Disconnect()
}

func TestClient_WritePumpDrainsAndCloses(t *testing.T) {
	conn := newMockConn()
	c := newClient(conn, NewHub(newRecordingHandler(), "", 8), 8)

	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()

	require.True(t, c.Send([]byte("hello")))
	require.True(t, c.Send([]byte("world")))
	c.Disconnect()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writePump did not exit")
	}

	frames := conn.writtenFrames()
	require.Len(t, frames, 3)
	assert.Equal(t, websocket.TextMessage, frames[0].messageType)
	assert.Equal(t, []byte("hello"), frames[0].data)
	assert.Equal(t, []byte("world"), frames[1].data)
	// Queue closure is signalled to the peer with a close frame
	assert.Equal(t, websocket.CloseMessage, frames[2].messageType)
}

func TestClient_ReadPumpDeliversInOrder(t *testing.T) {
	conn := newMockConn()
	handler := newRecordingHandler()
	hub := NewHub(handler, "", 8)
	c := newClient(conn, hub, 8)
	track(hub, c)
	handler.HandleConnect(c)

	conn.queue(websocket.TextMessage, []byte("first"))
	conn.queue(websocket.TextMessage, []byte("second"))
	conn.queue(websocket.TextMessage, []byte("third"))

	done := make(chan struct{})
	go func() {
		c.readPump()
		close(done)
	}()
	conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("readPump did not exit")
	}

	frames := handler.receivedFrames()
	require.Len(t, frames, 3)
	assert.Equal(t, []byte("first"), frames[0])
	assert.Equal(t, []byte("second"), frames[1])
	assert.Equal(t, []byte("third"), frames[2])
	assert.Equal(t, 1, handler.disconnectCount())
}

func TestClient_ReadPumpSetsReadLimit(t *testing.T) {
	conn := newMockConn()
	hub := NewHub(newRecordingHandler(), "", 8)
	c := newClient(conn, hub, 8)

	done := make(chan struct{})
	go func() {
		c.readPump()
		close(done)
	}()
	conn.Close()
	<-done

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, int64(65536), conn.readLimit)
}

func TestClient_ReadPumpRejectsBinaryFrames(t *testing.T) {
	conn := newMockConn()
	handler := newRecordingHandler()
	hub := NewHub(handler, "", 8)
	c := newClient(conn, hub, 8)
	track(hub, c)
	handler.HandleConnect(c)

	conn.queue(websocket.TextMessage, []byte("ok"))
	conn.queue(websocket.BinaryMessage, []byte{0x01, 0x02})
	conn.queue(websocket.TextMessage, []byte("never delivered"))

	done := make(chan struct{})
	go func() {
		c.readPump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("readPump did not exit")
	}

	frames := handler.receivedFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("ok"), frames[0])
	assert.Equal(t, 1, handler.disconnectCount())
}
