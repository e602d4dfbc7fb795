package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/janhq/room-bridge/internal/domain/room"
)

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]room.Snapshot
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]room.Snapshot)}
}

// Upsert replaces the stored snapshot of the room, stamped with its arrival time.
func (s *MemoryStore) Upsert(_ context.Context, snap *room.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := *snap
	row.UpdatedAt = time.Now().UTC()
	s.items[snap.RoomID] = row
	return nil
}

// Get returns the latest snapshot of a room.
func (s *MemoryStore) Get(_ context.Context, roomID string) (*room.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.items[roomID]
	if !ok {
		return nil, room.ErrSnapshotNotFound
	}
	return &snap, nil
}

// Len returns the number of rooms with a snapshot.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
