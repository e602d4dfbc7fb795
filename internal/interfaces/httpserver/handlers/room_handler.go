package handlers

import (
	"context"
	"time"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/infrastructure/metrics"
)

// RoomHandler handles room-related HTTP requests.
type RoomHandler struct {
	service room.Service
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(service room.Service) *RoomHandler {
	return &RoomHandler{service: service}
}

// Dispatch routes a bridge request to credential minting or session lifecycle.
func (h *RoomHandler) Dispatch(ctx context.Context, roomID, userID string) (*room.DispatchResult, error) {
	start := time.Now()
	res, err := h.service.Dispatch(ctx, room.DispatchRequest{RoomID: roomID, UserID: userID})
	if userID != "" && roomID != "" {
		metrics.TokenGenerationDuration.Observe(time.Since(start).Seconds())
		metrics.RecordCredentialMinted(err)
	}
	return res, err
}

// ListSessions returns every live session.
func (h *RoomHandler) ListSessions(ctx context.Context) ([]room.SessionInfo, error) {
	return h.service.ListSessions(ctx)
}

// GetSession retrieves the session of a room.
func (h *RoomHandler) GetSession(ctx context.Context, roomID string) (*room.SessionInfo, error) {
	return h.service.GetSession(ctx, roomID)
}

// EvictSession tears down the session of a room.
func (h *RoomHandler) EvictSession(ctx context.Context, roomID string) error {
	return h.service.EvictSession(ctx, roomID)
}

// GetSnapshot retrieves the latest persisted list of a room.
func (h *RoomHandler) GetSnapshot(ctx context.Context, roomID string) (*room.Snapshot, error) {
	return h.service.GetSnapshot(ctx, roomID)
}
