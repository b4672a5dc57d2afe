// Package health exposes liveness and readiness probes for the sync
// server.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kasagi/statesync/internal/v1/session"
	"github.com/kasagi/statesync/internal/v1/state"
)

// Handler manages health check endpoints
type Handler struct {
	sessions *session.Registry
	rooms    *state.Registry
}

// NewHandler creates a new health check handler
func NewHandler(sessions *session.Registry, rooms *state.Registry) *Handler {
	return &Handler{
		sessions: sessions,
		rooms:    rooms,
	}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string         `json:"status"`
	Stats     map[string]int `json:"stats"`
	Timestamp string         `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// The server has no external dependencies; readiness reports the
// in-process session/room/player counts for monitoring.
func (h *Handler) Readiness(c *gin.Context) {
	response := ReadinessResponse{
		Status: "ready",
		Stats: map[string]int{
			"sessions": h.sessions.Count(),
			"rooms":    h.rooms.RoomCount(),
			"players":  h.rooms.TotalPlayerCount(),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}
