package room

import "context"

// Authorizer mints access credentials.
type Authorizer interface {
	Mint(roomID, participantID string, info *ParticipantInfo) (*Credential, error)
}

// SnapshotWriter persists snapshots, overwriting any prior snapshot of the room.
type SnapshotWriter interface {
	Upsert(ctx context.Context, snapshot *Snapshot) error
}

// SnapshotStore is a SnapshotWriter that can also read the latest snapshot back.
type SnapshotStore interface {
	SnapshotWriter
	Get(ctx context.Context, roomID string) (*Snapshot, error)
}

// EnterOptions configure how the bridge joins a room.
type EnterOptions struct {
	Identity   string
	Credential *Credential
	Info       ParticipantInfo
	// AutoConnect asks the realtime service to connect immediately and
	// reconnect transparently.
	AutoConnect bool
}

// Connector enters rooms on the realtime room service.
type Connector interface {
	// Enter joins the room and starts delivering events to sink. Events may be
	// delivered before Enter returns.
	Enter(ctx context.Context, roomID string, opts EnterOptions, sink EventSink) (Connection, error)
}

// Connection is an open handle to one room.
type Connection interface {
	// Storage waits for the initial storage sync and returns the storage root.
	Storage(ctx context.Context) (*StorageRoot, error)
	// Others returns the identities of the other participants in the room.
	Others() []string
	// Close leaves the room. It is safe to call more than once.
	Close()
}

// Lease guards a room across replicas.
type Lease interface {
	Acquire(ctx context.Context, roomID string) (Lock, error)
}

// Lock is a held room lease.
type Lock interface {
	Extend(ctx context.Context) error
	Release(ctx context.Context) error
}

// Hooks observe session lifecycle. Nil fields are ignored.
type Hooks struct {
	OnTransition      func(roomID string, from, to State)
	OnInitialized     func(roomID string, err error)
	OnTeardown        func(roomID string, reason TeardownReason)
	OnSnapshotWritten func(roomID string, err error)
	OnEvent           func(roomID string, kind string)
}
