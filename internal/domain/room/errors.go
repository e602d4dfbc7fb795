package room

import "errors"

var (
	// ErrNotFound is returned when no room identifier was supplied or the room has no session.
	ErrNotFound = errors.New("room not found")
	// ErrAuthFailure is returned when a credential could not be minted.
	ErrAuthFailure = errors.New("credential minting failed")
	// ErrInitialization wraps failures while entering a room or syncing its storage.
	ErrInitialization = errors.New("session initialization failed")
	// ErrPersistence wraps snapshot write failures.
	ErrPersistence = errors.New("snapshot persistence failed")
	// ErrSessionClosed is returned when a request reaches a session that already left its room.
	ErrSessionClosed = errors.New("session closed")
	// ErrLeaseHeld is returned when another replica holds the room lease.
	ErrLeaseHeld = errors.New("room lease held elsewhere")
	// ErrSnapshotNotFound is returned when no snapshot was persisted for a room.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
