package entities

import (
	"time"

	"github.com/janhq/room-bridge/internal/domain/room"
)

// TableName specifies the table name for RoomSnapshot.
func (RoomSnapshot) TableName() string {
	return "room_snapshots"
}

// RoomSnapshot is the latest persisted list of a room.
type RoomSnapshot struct {
	RoomID    string    `gorm:"primaryKey;type:text"`
	Todos     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// EtoD converts the row to a domain snapshot.
func (e *RoomSnapshot) EtoD() *room.Snapshot {
	return &room.Snapshot{
		RoomID:    e.RoomID,
		Todos:     e.Todos,
		UpdatedAt: e.UpdatedAt,
	}
}
