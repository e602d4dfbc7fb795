// Package requests contains HTTP request DTOs for the room-bridge.
package requests

// BridgeQuery is the query string of the bridge endpoint.
type BridgeQuery struct {
	// RoomID selects the room; requests without it are not found.
	RoomID string `form:"roomId"`
	// UserID, when present, asks for a participant credential instead of a lifecycle action.
	UserID string `form:"userId"`
}
