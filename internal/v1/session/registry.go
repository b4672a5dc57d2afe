package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasagi/statesync/internal/v1/logging"
)

// Registry manages all connected sessions.
//
// Sessions are indexed twice: by connection sink for fast lookup from
// the transport layer, and by session id for room fan-out. Both
// indexes are sync.Maps, so lookups from unrelated connection
// goroutines never contend.
type Registry struct {
	byConn sync.Map // Sink -> *Session
	byID   sync.Map // session id -> *Session
	count  atomic.Int64
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Create mints a fresh session for an accepted connection and
// registers it under both indexes. The transport guarantees one call
// per accepted connection.
func (r *Registry) Create(conn Sink) *Session {
	s := newSession(uuid.NewString(), conn)

	r.byConn.Store(conn, s)
	r.byID.Store(s.ID, s)
	total := r.count.Add(1)

	logging.Info(logging.WithSession(context.Background(), s.ID), "Session created",
		zap.Int64("activeSessions", total))
	return s
}

// Remove drops the session for a closed connection from both indexes
// and returns it, or false if the connection was never registered.
func (r *Registry) Remove(conn Sink) (*Session, bool) {
	v, ok := r.byConn.LoadAndDelete(conn)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	r.byID.Delete(s.ID)
	total := r.count.Add(-1)

	logging.Info(logging.WithSession(context.Background(), s.ID), "Session removed",
		zap.Int64("activeSessions", total))
	return s, true
}

// GetByConn returns the session for a connection sink.
func (r *Registry) GetByConn(conn Sink) (*Session, bool) {
	v, ok := r.byConn.Load(conn)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// GetByID returns the session with the given id.
func (r *Registry) GetByID(sessionID string) (*Session, bool) {
	v, ok := r.byID.Load(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return int(r.count.Load())
}

// All returns a snapshot of the live sessions.
func (r *Registry) All() []*Session {
	sessions := make([]*Session, 0, r.Count())
	r.byID.Range(func(_, v any) bool {
		sessions = append(sessions, v.(*Session))
		return true
	})
	return sessions
}
