// Package metrics provides Prometheus metrics for the room-bridge service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/janhq/room-bridge/internal/domain/room"
)

var (
	// ActiveSessions tracks the number of sessions currently bridging a room.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "room_bridge_active_sessions",
			Help: "Number of room sessions in the active state",
		},
	)

	// SessionStateTransitions tracks session state changes.
	SessionStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_bridge_session_state_transitions_total",
			Help: "Total number of room session state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// SessionInitializations tracks initialization outcomes.
	SessionInitializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_bridge_session_initializations_total",
			Help: "Total number of room session initializations by result",
		},
		[]string{"result"},
	)

	// SessionTeardowns tracks teardowns by reason.
	SessionTeardowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_bridge_session_teardowns_total",
			Help: "Total number of room session teardowns by reason",
		},
		[]string{"reason"},
	)

	// SnapshotWrites tracks snapshot upserts by result.
	SnapshotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_bridge_snapshot_writes_total",
			Help: "Total number of snapshot upserts by result",
		},
		[]string{"result"},
	)

	// RoomEvents tracks realtime events received by sessions.
	RoomEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_bridge_room_events_total",
			Help: "Total number of realtime room events by kind",
		},
		[]string{"kind"},
	)

	// CredentialsMinted tracks credentials issued to participants.
	CredentialsMinted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_bridge_credentials_minted_total",
			Help: "Total number of participant credentials minted by result",
		},
		[]string{"result"},
	)

	// TokenGenerationDuration tracks token generation time.
	TokenGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "room_bridge_token_generation_duration_seconds",
			Help:    "Duration of LiveKit token generation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)

	// ReaperSyncDuration tracks the duration of LiveKit reconciliation passes.
	ReaperSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "room_bridge_reaper_sync_duration_seconds",
			Help:    "Duration of LiveKit room reconciliation passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ReaperSyncErrors tracks errors during reconciliation.
	ReaperSyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_bridge_reaper_sync_errors_total",
			Help: "Total number of errors during LiveKit reconciliation",
		},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordStateTransition records a session state change.
func RecordStateTransition(from, to room.State) {
	SessionStateTransitions.WithLabelValues(string(from), string(to)).Inc()
	if to == room.StateActive {
		ActiveSessions.Inc()
	}
	if from == room.StateActive {
		ActiveSessions.Dec()
	}
}

// RecordCredentialMinted records the outcome of a credential request.
func RecordCredentialMinted(err error) {
	CredentialsMinted.WithLabelValues(result(err)).Inc()
}

// Hooks returns session hooks that feed the collectors above.
func Hooks() room.Hooks {
	return room.Hooks{
		OnTransition: func(_ string, from, to room.State) {
			RecordStateTransition(from, to)
		},
		OnInitialized: func(_ string, err error) {
			SessionInitializations.WithLabelValues(result(err)).Inc()
		},
		OnTeardown: func(_ string, reason room.TeardownReason) {
			SessionTeardowns.WithLabelValues(string(reason)).Inc()
		},
		OnSnapshotWritten: func(_ string, err error) {
			SnapshotWrites.WithLabelValues(result(err)).Inc()
		},
		OnEvent: func(_ string, kind string) {
			RoomEvents.WithLabelValues(kind).Inc()
		},
	}
}

var (
	// HTTPRequests tracks served HTTP requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_bridge_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "room_bridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
