package livekit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/janhq/room-bridge/internal/domain/room"
)

// document is the shared storage of a room, kept as the room's metadata.
type document struct {
	Todos room.List `json:"todos"`
}

// emptyDocument is written to rooms that carry no document yet.
const emptyDocument = `{"todos":[]}`

// decodeDocument parses room metadata. Empty metadata yields a root without a list.
func decodeDocument(metadata string) (*room.StorageRoot, error) {
	if strings.TrimSpace(metadata) == "" {
		return &room.StorageRoot{}, nil
	}
	var doc document
	if err := json.Unmarshal([]byte(metadata), &doc); err != nil {
		return nil, fmt.Errorf("decode room document: %w", err)
	}
	return &room.StorageRoot{Todos: doc.Todos}, nil
}
