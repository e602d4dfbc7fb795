// Package roomres contains HTTP response DTOs for room endpoints.
package roomres

import (
	"encoding/json"
	"time"

	"github.com/janhq/room-bridge/internal/domain/room"
)

// CredentialResponse is the body returned to a participant asking to join a room.
type CredentialResponse struct {
	Token     string `json:"token"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	WsURL     string `json:"ws_url,omitempty"`
	ExpiresAt int64  `json:"expires_at"`
}

// SessionResponse represents a room session in API responses.
type SessionResponse struct {
	ID               string     `json:"id"`
	Object           string     `json:"object"`
	RoomID           string     `json:"room_id"`
	Handle           string     `json:"handle"`
	Status           string     `json:"status"`
	Participants     int        `json:"participants"`
	Items            int        `json:"items"`
	SnapshotsWritten int64      `json:"snapshots_written"`
	SnapshotsFailed  int64      `json:"snapshots_failed"`
	CreatedAt        int64      `json:"created_at"`
	ActivatedAt      *int64     `json:"activated_at,omitempty"`
	EmptySince       *time.Time `json:"empty_since,omitempty"`
}

// ListSessionsResponse represents the response for listing sessions.
type ListSessionsResponse struct {
	Object string             `json:"object"`
	Data   []*SessionResponse `json:"data"`
}

// SnapshotResponse is the latest persisted list of a room.
type SnapshotResponse struct {
	Object    string          `json:"object"`
	RoomID    string          `json:"room_id"`
	Todos     json.RawMessage `json:"todos" swaggertype:"array,object"`
	UpdatedAt int64           `json:"updated_at"`
}

// EvictSessionResponse represents the response for evicting a session.
type EvictSessionResponse struct {
	RoomID  string `json:"room_id"`
	Object  string `json:"object"`
	Evicted bool   `json:"evicted"`
}

// NewCredentialResponse creates a CredentialResponse from a domain Credential.
func NewCredentialResponse(cred *room.Credential) *CredentialResponse {
	return &CredentialResponse{
		Token:     cred.Token,
		RoomID:    cred.RoomID,
		UserID:    cred.ParticipantID,
		WsURL:     cred.WsURL,
		ExpiresAt: cred.ExpiresAt,
	}
}

// NewSessionResponse creates a SessionResponse from session info.
func NewSessionResponse(info *room.SessionInfo) *SessionResponse {
	resp := &SessionResponse{
		ID:               info.ID,
		Object:           "room.session",
		RoomID:           info.RoomID,
		Handle:           info.Handle,
		Status:           string(info.State),
		Participants:     info.Participants,
		Items:            info.Items,
		SnapshotsWritten: info.SnapshotsWritten,
		SnapshotsFailed:  info.SnapshotsFailed,
		CreatedAt:        info.CreatedAt.Unix(),
	}
	if !info.ActivatedAt.IsZero() {
		activated := info.ActivatedAt.Unix()
		resp.ActivatedAt = &activated
	}
	if !info.EmptySince.IsZero() {
		since := info.EmptySince
		resp.EmptySince = &since
	}
	return resp
}

// NewListSessionsResponse creates a ListSessionsResponse from session infos.
func NewListSessionsResponse(infos []room.SessionInfo) *ListSessionsResponse {
	data := make([]*SessionResponse, len(infos))
	for i := range infos {
		data[i] = NewSessionResponse(&infos[i])
	}
	return &ListSessionsResponse{
		Object: "list",
		Data:   data,
	}
}

// NewSnapshotResponse creates a SnapshotResponse from a domain Snapshot.
func NewSnapshotResponse(snap *room.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		Object:    "room.snapshot",
		RoomID:    snap.RoomID,
		Todos:     json.RawMessage(snap.Todos),
		UpdatedAt: snap.UpdatedAt.Unix(),
	}
}

// NewEvictSessionResponse creates an EvictSessionResponse.
func NewEvictSessionResponse(roomID string) *EvictSessionResponse {
	return &EvictSessionResponse{
		RoomID:  roomID,
		Object:  "room.session.evicted",
		Evicted: true,
	}
}
