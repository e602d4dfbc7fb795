package handlers

import (
	"github.com/google/wire"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Room *RoomHandler
}

// NewProvider creates a new handler provider.
func NewProvider(roomHandler *RoomHandler) *Provider {
	return &Provider{
		Room: roomHandler,
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewRoomHandler,
	NewProvider,
)
