package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/domain/room/roomtest"
)

func TestMemoryStore_Upsert(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		writes []room.Snapshot
		want   string
	}{
		{
			name:   "single write",
			writes: []room.Snapshot{{RoomID: "r1", Todos: `["a"]`, UpdatedAt: base}},
			want:   `["a"]`,
		},
		{
			name: "last write wins",
			writes: []room.Snapshot{
				{RoomID: "r1", Todos: `["a"]`, UpdatedAt: base},
				{RoomID: "r1", Todos: `["a","b"]`, UpdatedAt: base.Add(time.Second)},
			},
			want: `["a","b"]`,
		},
		{
			name: "writer timestamps do not order writes",
			writes: []room.Snapshot{
				{RoomID: "r1", Todos: `["first"]`, UpdatedAt: base.Add(time.Hour)},
				{RoomID: "r1", Todos: `["second"]`, UpdatedAt: base},
			},
			want: `["second"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			for i := range tt.writes {
				if err := s.Upsert(context.Background(), &tt.writes[i]); err != nil {
					t.Fatalf("Upsert() error: %v", err)
				}
			}
			got, err := s.Get(context.Background(), "r1")
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got.Todos != tt.want {
				t.Errorf("Todos = %s, want %s", got.Todos, tt.want)
			}
			if s.Len() != 1 {
				t.Errorf("Len() = %d, want 1", s.Len())
			}
		})
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, room.ErrSnapshotNotFound) {
		t.Fatalf("Get() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestMemoryStore_UpsertOverwritesLaterTimestamp(t *testing.T) {
	s := NewMemoryStore()
	future := time.Now().UTC().Add(5 * time.Minute)
	s.items["r1"] = room.Snapshot{RoomID: "r1", Todos: `["old"]`, UpdatedAt: future}

	before := time.Now().UTC()
	if err := s.Upsert(context.Background(), &room.Snapshot{RoomID: "r1", Todos: `["a"]`, UpdatedAt: before}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	got, err := s.Get(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Todos != `["a"]` {
		t.Errorf("Todos = %s, want [\"a\"]", got.Todos)
	}
	if got.UpdatedAt.Before(before) || got.UpdatedAt.After(future) {
		t.Errorf("UpdatedAt = %v, want arrival time", got.UpdatedAt)
	}
}

func TestMemoryStore_SessionMutationReplacesNewerRow(t *testing.T) {
	store := NewMemoryStore()
	store.items["r1"] = room.Snapshot{RoomID: "r1", Todos: `["old"]`, UpdatedAt: time.Now().UTC().Add(5 * time.Minute)}

	connector := &roomtest.Connector{}
	connector.SetRoom("r1", roomtest.Room{Todos: roomtest.List("a"), Others: []string{"alice"}})
	reg := room.NewRegistry(1, room.SessionConfig{}, room.Dependencies{
		Authorizer: &roomtest.Authorizer{},
		Writer:     store,
		Connector:  connector,
	}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	defer reg.Close(ctx)

	if _, err := reg.Acquire(ctx, "r1"); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	sess, ok := reg.Lookup("r1")
	if !ok {
		t.Fatal("session not registered")
	}
	if err := sess.WaitActive(ctx); err != nil {
		t.Fatalf("WaitActive() error: %v", err)
	}
	connector.Last("r1").SetTodos("a", "b")

	want := roomtest.JSON("a", "b")
	for {
		got, err := store.Get(ctx, "r1")
		if err == nil && got.Todos == want {
			break
		}
		select {
		case <-ctx.Done():
			t.Fatalf("stored todos = %+v, want %s", got, want)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if info := sess.Info(); info.SnapshotsFailed != 0 {
		t.Errorf("SnapshotsFailed = %d, want 0", info.SnapshotsFailed)
	}
}
