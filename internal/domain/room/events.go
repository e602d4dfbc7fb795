package room

// Event is a notification pushed by the realtime room service. The set of
// implementations is closed: StorageChanged, PresenceChanged, ConnectionStatus
// and ConnectionLost.
type Event interface {
	eventKind() string
}

// StorageChanged carries the full current value of the shared list after a
// structural mutation.
type StorageChanged struct {
	Todos List
}

// PresenceChanged carries the identities of the other participants currently
// in the room. The service identity itself is filtered out by Session.
type PresenceChanged struct {
	Others []string
}

// ConnectionStatus values.
const (
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusReconnecting = "reconnecting"
	StatusDisconnected = "disconnected"
)

// ConnectionStatus reports the status of the realtime connection.
type ConnectionStatus struct {
	Status string
}

// ConnectionLost kinds.
const (
	LostConnection     = "lost"
	RestoredConnection = "restored"
	FailedConnection   = "failed"
)

// ConnectionLost reports a connection loss, its recovery or a permanent failure.
type ConnectionLost struct {
	Kind string
	Err  error
}

func (StorageChanged) eventKind() string   { return "storage_changed" }
func (PresenceChanged) eventKind() string  { return "presence_changed" }
func (ConnectionStatus) eventKind() string { return "connection_status" }
func (ConnectionLost) eventKind() string   { return "connection_lost" }

// EventKind returns a stable label for an event, used for logs and metrics.
func EventKind(ev Event) string {
	if ev == nil {
		return "unknown"
	}
	return ev.eventKind()
}

// EventSink receives events for one room. Implementations must not block for long.
type EventSink func(Event)
