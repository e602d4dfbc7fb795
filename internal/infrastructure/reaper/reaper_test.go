package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/domain/room/roomtest"
	"github.com/janhq/room-bridge/internal/infrastructure/livekit"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeRooms struct {
	mu           sync.Mutex
	rooms        map[string]livekit.RoomInfo
	participants map[string][]string
	listErr      error
}

func (f *fakeRooms) ListActiveRooms(context.Context) (map[string]livekit.RoomInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make(map[string]livekit.RoomInfo, len(f.rooms))
	for k, v := range f.rooms {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRooms) ListParticipants(_ context.Context, roomName string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.participants[roomName]...), nil
}

func (f *fakeRooms) set(roomID string, identities ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms == nil {
		f.rooms = map[string]livekit.RoomInfo{}
		f.participants = map[string][]string{}
	}
	f.rooms[roomID] = livekit.RoomInfo{Name: roomID, NumParticipants: len(identities)}
	f.participants[roomID] = identities
}

type fixture struct {
	registry  *room.Registry
	connector *roomtest.Connector
	rooms     *fakeRooms
	reaper    *Reaper
}

func newFixture(t *testing.T, staleTTL time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		connector: &roomtest.Connector{},
		rooms:     &fakeRooms{},
	}
	f.registry = room.NewRegistry(2, room.SessionConfig{}, room.Dependencies{
		Authorizer: &roomtest.Authorizer{},
		Writer:     &roomtest.Writer{},
		Connector:  f.connector,
	}, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = f.registry.Close(ctx)
	})
	f.reaper = NewReaper(f.registry, f.rooms, staleTTL, time.Hour, zerolog.Nop())
	return f
}

func (f *fixture) activate(t *testing.T, roomID string, others ...string) *room.Session {
	t.Helper()
	f.connector.SetRoom(roomID, roomtest.Room{Others: others})
	_, err := f.registry.Acquire(context.Background(), roomID)
	require.NoError(t, err)
	sess, ok := f.registry.Lookup(roomID)
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, sess.WaitActive(ctx))
	return sess
}

func waitDone(t *testing.T, sess *room.Session) {
	t.Helper()
	select {
	case <-sess.Done():
	case <-time.After(waitFor):
		t.Fatalf("session %s still running", sess.RoomID())
	}
}

func TestReaper_SyncTearsDownRoomsTheServerReportsEmpty(t *testing.T) {
	f := newFixture(t, time.Hour)
	sess := f.activate(t, "r1", "alice")

	// LiveKit no longer lists the room: everyone left while events were missed.
	f.reaper.Sync(context.Background())

	waitDone(t, sess)
	require.True(t, f.connector.Last("r1").Closed())
}

func TestReaper_SyncUpdatesParticipants(t *testing.T) {
	f := newFixture(t, time.Hour)
	sess := f.activate(t, "r1", "alice")
	f.rooms.set("r1", "alice", "bob", "bridge-worker-r1")

	f.reaper.Sync(context.Background())

	require.Eventually(t, func() bool { return sess.Info().Participants == 2 }, waitFor, tick)
	require.Equal(t, room.StateActive, sess.State())
}

func TestReaper_EvictsStaleSessions(t *testing.T) {
	f := newFixture(t, 10*time.Minute)
	stale := f.activate(t, "empty")
	busy := f.activate(t, "busy", "alice")
	f.rooms.set("busy", "alice")
	f.reaper.now = func() time.Time { return time.Now().Add(time.Hour) }

	f.reaper.Sync(context.Background())

	waitDone(t, stale)
	require.Equal(t, room.StateActive, busy.State())
	_, ok := f.registry.Lookup("busy")
	require.True(t, ok)
}

func TestReaper_KeepsRecentlyEmptiedSessions(t *testing.T) {
	f := newFixture(t, 10*time.Minute)
	sess := f.activate(t, "empty")

	f.reaper.Sync(context.Background())
	f.reaper.Sync(context.Background())

	require.Never(t, sess.Closed, 50*time.Millisecond, tick)
	require.Equal(t, room.StateActive, sess.State())
}

func TestReaper_ListFailureFallsBackToTTL(t *testing.T) {
	f := newFixture(t, time.Minute)
	stale := f.activate(t, "empty")
	busy := f.activate(t, "busy", "alice")
	f.rooms.listErr = errors.New("livekit unavailable")
	f.reaper.now = func() time.Time { return time.Now().Add(time.Hour) }

	f.reaper.Sync(context.Background())

	waitDone(t, stale)
	require.Equal(t, room.StateActive, busy.State(), "presence is not guessed without a room list")
}

func TestReaper_StartStop(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.reaper.interval = 5 * time.Millisecond
	sess := f.activate(t, "r1", "alice")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.reaper.Start(ctx)
	f.reaper.Start(ctx)

	waitDone(t, sess)

	f.reaper.Stop()
	f.reaper.Stop()
}
