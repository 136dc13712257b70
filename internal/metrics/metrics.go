package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partychat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partychat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
		[]string{"method", "path"},
	)

	// Room metrics
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partychat_active_rooms",
			Help: "Rooms with a running actor",
		},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partychat_active_connections",
			Help: "Connected WebSocket participants",
		},
	)

	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partychat_messages_ingested_total",
			Help: "Inbound frames by event type",
		},
		[]string{"type"}, // "add", "update" or "invalid"
	)

	BroadcastFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partychat_broadcast_frames_total",
			Help: "Frames queued to peers by re-broadcast",
		},
	)

	DroppedParticipants = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partychat_dropped_participants_total",
			Help: "Participants dropped because their send queue was full",
		},
	)

	PrunedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partychat_pruned_messages_total",
			Help: "Messages removed by retention prune",
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partychat_store_errors_total",
			Help: "Durable store failures",
		},
		[]string{"op"},
	)

	// Upload metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partychat_uploads_total",
			Help: "Upload requests by outcome",
		},
		[]string{"outcome"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partychat_upload_bytes_total",
			Help: "Bytes written to the object store",
		},
	)
)
