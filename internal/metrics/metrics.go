package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubConnectedSessions tracks the number of live websocket sessions.
	HubConnectedSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_sessions",
			Help: "Number of currently connected websocket sessions",
		},
	)

	// HubActiveRooms tracks the number of rooms with at least one member.
	HubActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_rooms",
			Help: "Number of rooms with at least one member",
		},
	)

	// HubSlowSessionsEvicted counts sessions disconnected because their
	// send buffer was full during a broadcast.
	HubSlowSessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_sessions_evicted_total",
			Help: "Sessions evicted because they could not keep up with broadcasts",
		},
	)

	// HubConnectionsRejected counts connections refused by the global cap.
	HubConnectionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_connections_rejected_total",
			Help: "Connections rejected because the connection limit was reached",
		},
	)
)

// Broadcast metrics
var (
	// BroadcastsTotal counts accepted broadcasts by delivery scope.
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Broadcasts dispatched, by scope (room or global)",
		},
		[]string{"scope"},
	)

	// BroadcastsRejectedTotal counts envelopes refused by the validation gate.
	BroadcastsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcasts_rejected_total",
			Help: "Broadcast attempts rejected for a missing event name",
		},
	)
)

// Bus ingestion metrics
var (
	// BusMessagesTotal counts Redis messages by delivery path and outcome.
	BusMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_total",
			Help: "Redis pub/sub messages received, by path (exact/pattern) and result",
		},
		[]string{"path", "result"},
	)

	// BusDuplicateDeliveries counts pattern-path messages whose channel is
	// also covered by an exact subscription and was therefore delivered twice.
	BusDuplicateDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_duplicate_deliveries_total",
			Help: "Messages received on both the exact and pattern subscription paths",
		},
	)
)

// Push ingestion metrics
var (
	// PushRequestsTotal counts internal event pushes by HTTP status.
	PushRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_requests_total",
			Help: "Internal event push requests, by response status",
		},
		[]string{"status"},
	)
)

// WebSocket transport metrics
var (
	// WebSocketMessageSendDuration tracks per-message write latency.
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "Duration of websocket message sends in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WebSocketPingFailures counts failed keepalive pings.
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Failed websocket ping writes (client likely disconnected)",
		},
	)
)
