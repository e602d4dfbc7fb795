package room

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of a room session.
type State string

const (
	// StateIdle means no bridge is attached to the room.
	StateIdle State = "idle"
	// StateInitializing means the bridge is entering the room and syncing storage.
	StateInitializing State = "initializing"
	// StateActive means the bridge is synced and persisting snapshots.
	StateActive State = "active"
	// StateTearingDown means the bridge is leaving the room.
	StateTearingDown State = "tearing_down"
)

// AcquireStatus is the answer to a lifecycle request.
type AcquireStatus string

const (
	// AcquireStarted means a new session was created and is initializing in the background.
	AcquireStarted AcquireStatus = "ok"
	// AcquireNotEvicted means a session was already initializing or active.
	AcquireNotEvicted AcquireStatus = "not_evicted"
)

// TeardownReason records why a session left the room.
type TeardownReason string

const (
	ReasonRoomEmpty TeardownReason = "room_empty"
	ReasonStale     TeardownReason = "stale"
	ReasonEvicted   TeardownReason = "evicted"
	ReasonLeaseLost TeardownReason = "lease_lost"
	ReasonShutdown  TeardownReason = "shutdown"
)

// List is the value of the shared "todos" list. Items are opaque JSON values.
type List []json.RawMessage

// StorageRoot is the synced storage of a room.
type StorageRoot struct {
	Todos List
}

// Credential is a signed, time-bounded access token for one participant of one room.
type Credential struct {
	Token         string `json:"token"`
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"user_id"`
	WsURL         string `json:"ws_url,omitempty"`
	ExpiresAt     int64  `json:"expires_at"`
}

// ParticipantInfo is optional descriptive data embedded into a credential.
type ParticipantInfo struct {
	Bot      bool   `json:"bot,omitempty"`
	IsTyping bool   `json:"isTyping"`
	Name     string `json:"name,omitempty"`
}

// Snapshot is the serialized value of a room's list at a point in time.
type Snapshot struct {
	RoomID    string    `json:"room_id"`
	Todos     string    `json:"todos"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSnapshot serializes the full list. A nil list serializes as "[]".
func NewSnapshot(roomID string, todos List) (*Snapshot, error) {
	if todos == nil {
		todos = List{}
	}
	data, err := json.Marshal(todos)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		RoomID:    roomID,
		Todos:     string(data),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// SessionInfo is a read-only view of a session.
type SessionInfo struct {
	ID               string    `json:"id"`
	Handle           string    `json:"handle"`
	RoomID           string    `json:"room_id"`
	State            State     `json:"state"`
	Participants     int       `json:"participants"`
	Items            int       `json:"items"`
	SnapshotsWritten int64     `json:"snapshots_written"`
	SnapshotsFailed  int64     `json:"snapshots_failed"`
	CreatedAt        time.Time `json:"created_at"`
	ActivatedAt      time.Time `json:"activated_at,omitempty"`
	EmptySince       time.Time `json:"empty_since,omitempty"`
}

// AcquireResult is returned for a lifecycle request.
type AcquireResult struct {
	Status AcquireStatus
	Handle string
}
