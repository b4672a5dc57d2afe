package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the state synchronization server.
//
// Naming convention: namespace_subsystem_name
// - namespace: statesync (application-level grouping)
// - subsystem: websocket, room (feature-level grouping)
// - name: specific metric (connections_active, messages_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, players)
// - Counter: Cumulative events (messages processed, dropped sends)
// - Histogram: Latency distributions (processing time)

var (
	// ActiveConnections tracks the current number of live WebSocket connections
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "statesync",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of active rooms
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "statesync",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPlayers tracks the number of players resident in each room
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "statesync",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"room_id"})

	// Messages tracks the total number of inbound messages processed
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statesync",
		Subsystem: "websocket",
		Name:      "messages_total",
		Help:      "Total inbound messages processed",
	}, []string{"message_type", "status"})

	// MessageProcessingDuration tracks the time spent handling inbound messages
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "statesync",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing inbound messages",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
	}, []string{"message_type"})

	// DroppedSends counts outbound frames dropped because a recipient's
	// send buffer was saturated
	DroppedSends = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "statesync",
		Subsystem: "websocket",
		Name:      "dropped_sends_total",
		Help:      "Outbound frames dropped due to a full send buffer",
	})

	// Broadcasts counts room-wide fan-outs by outbound message type
	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statesync",
		Subsystem: "room",
		Name:      "broadcasts_total",
		Help:      "Total room-wide broadcast fan-outs",
	}, []string{"message_type"})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
