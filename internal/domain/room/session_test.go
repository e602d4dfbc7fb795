package room_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/domain/room/roomtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type harness struct {
	registry   *room.Registry
	authorizer *roomtest.Authorizer
	writer     *roomtest.Writer
	connector  *roomtest.Connector
}

func newHarness(t *testing.T, mutate func(*room.Dependencies)) *harness {
	t.Helper()
	h := &harness{
		authorizer: &roomtest.Authorizer{},
		writer:     &roomtest.Writer{},
		connector:  &roomtest.Connector{},
	}
	deps := room.Dependencies{
		Authorizer: h.authorizer,
		Writer:     h.writer,
		Connector:  h.connector,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.registry = room.NewRegistry(4, room.SessionConfig{MailboxSize: 16}, deps, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		if err := h.registry.Close(ctx); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
	return h
}

func (h *harness) acquire(t *testing.T, roomID string) *room.AcquireResult {
	t.Helper()
	res, err := h.registry.Acquire(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Acquire(%s) error: %v", roomID, err)
	}
	return res
}

func (h *harness) activate(t *testing.T, roomID string) *room.Session {
	t.Helper()
	res := h.acquire(t, roomID)
	if res.Status != room.AcquireStarted {
		t.Fatalf("Acquire(%s) status = %s, want %s", roomID, res.Status, room.AcquireStarted)
	}
	sess, ok := h.registry.Lookup(roomID)
	if !ok {
		t.Fatalf("no session for %s", roomID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := sess.WaitActive(ctx); err != nil {
		t.Fatalf("WaitActive(%s) error: %v", roomID, err)
	}
	return sess
}

func (h *harness) waitGone(t *testing.T, roomID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := h.registry.Lookup(roomID)
		return !ok
	}, waitFor, tick, "session for %s was not removed", roomID)
}

func TestSession_ScenarioFirstRequestThenMutation(t *testing.T) {
	h := newHarness(t, nil)
	h.connector.SetRoom("r1", roomtest.Room{Todos: roomtest.List("a"), Others: []string{"alice"}})

	res := h.acquire(t, "r1")
	require.Equal(t, room.AcquireStarted, res.Status)
	require.Equal(t, room.Handle("r1"), res.Handle)

	sess, ok := h.registry.Lookup("r1")
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, sess.WaitActive(ctx))

	require.Eventually(t, func() bool { return h.writer.Value("r1") == roomtest.JSON("a") }, waitFor, tick)

	again := h.acquire(t, "r1")
	require.Equal(t, room.AcquireNotEvicted, again.Status)
	require.Equal(t, res.Handle, again.Handle)

	h.connector.Last("r1").SetTodos("a", "b")
	require.Eventually(t, func() bool { return h.writer.Value("r1") == roomtest.JSON("a", "b") }, waitFor, tick)
	require.Eventually(t, func() bool { return sess.Info().SnapshotsWritten == 2 }, waitFor, tick)
	require.Equal(t, 2, h.writer.Writes("r1"), "one baseline plus one write per mutation")
	require.Len(t, h.connector.Conns("r1"), 1, "re-entrant requests must not join again")
}

func TestSession_ScenarioLastParticipantLeaves(t *testing.T) {
	h := newHarness(t, nil)
	h.connector.SetRoom("r2", roomtest.Room{Todos: roomtest.List("x"), Others: []string{"alice", "bob"}})

	sess := h.activate(t, "r2")
	conn := h.connector.Last("r2")

	conn.SetOthers("alice")
	require.Eventually(t, func() bool { return sess.Info().Participants == 1 }, waitFor, tick)
	require.Equal(t, room.StateActive, sess.State())

	conn.SetOthers()
	select {
	case <-sess.Done():
	case <-time.After(waitFor):
		t.Fatal("session was not torn down")
	}
	require.True(t, conn.Closed())
	require.Equal(t, room.StateIdle, sess.State())
	h.waitGone(t, "r2")

	// A second emptiness signal after teardown is a no-op.
	conn.SetOthers()

	next := h.activate(t, "r2")
	require.NotEqual(t, sess.ID(), next.ID())
	require.Len(t, h.connector.Conns("r2"), 2)
}

func TestSession_JoinsAsHiddenBot(t *testing.T) {
	h := newHarness(t, nil)
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	sess := h.activate(t, "r1")
	conn := h.connector.Last("r1")

	require.Equal(t, "bridge-worker-r1", sess.Identity())
	require.Equal(t, "bridge-worker-r1", conn.Identity)
	require.True(t, conn.Info.Bot)
	require.False(t, conn.Info.IsTyping)
	require.Equal(t, []string{"r1/bridge-worker-r1"}, h.authorizer.Calls())
}

func TestSession_EmptyDocumentPersistsEmptyList(t *testing.T) {
	h := newHarness(t, nil)
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	sess := h.activate(t, "r1")

	require.Eventually(t, func() bool { return h.writer.Value("r1") == "[]" }, waitFor, tick)
	require.Equal(t, 0, sess.Info().Items)
}

func TestSession_PresenceIgnoresBridgeIdentities(t *testing.T) {
	h := newHarness(t, nil)
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice", "bridge-worker-r1"}})

	sess := h.activate(t, "r1")
	require.Equal(t, 1, sess.Info().Participants)

	h.connector.Last("r1").SetOthers("bridge-worker-r1")
	select {
	case <-sess.Done():
	case <-time.After(waitFor):
		t.Fatal("only the bridge remained but the session stayed")
	}
}

func TestSession_StaysWhileRoomNeverHadParticipants(t *testing.T) {
	h := newHarness(t, nil)
	h.connector.SetRoom("r1", roomtest.Room{})

	sess := h.activate(t, "r1")
	require.False(t, sess.Info().EmptySince.IsZero())

	conn := h.connector.Last("r1")
	conn.SetOthers()
	conn.SetTodos("first")
	require.Eventually(t, func() bool { return h.writer.Value("r1") == roomtest.JSON("first") }, waitFor, tick)
	require.Equal(t, room.StateActive, sess.State(), "0 -> 0 is not a departure")

	conn.SetOthers("alice")
	require.Eventually(t, func() bool { return sess.Info().EmptySince.IsZero() }, waitFor, tick)
	conn.SetOthers()
	select {
	case <-sess.Done():
	case <-time.After(waitFor):
		t.Fatal("session was not torn down after 1 -> 0")
	}
}

func TestSession_InitializationFailureAllowsRetry(t *testing.T) {
	var mu sync.Mutex
	fail := true
	h := newHarness(t, nil)
	h.connector.EnterFunc = func(context.Context, string, room.EnterOptions) error {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return errors.New("service unavailable")
		}
		return nil
	}
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	res := h.acquire(t, "r1")
	require.Equal(t, room.AcquireStarted, res.Status)
	sess, ok := h.registry.Lookup("r1")
	if ok {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.ErrorIs(t, sess.WaitActive(ctx), room.ErrSessionClosed)
	}
	h.waitGone(t, "r1")
	require.Equal(t, 0, h.writer.Writes("r1"))

	mu.Lock()
	fail = false
	mu.Unlock()

	h.activate(t, "r1")
	require.Eventually(t, func() bool { return h.writer.Writes("r1") == 1 }, waitFor, tick)
}

func TestSession_CredentialFailureFailsInitialization(t *testing.T) {
	var mu sync.Mutex
	var initErr error
	done := make(chan struct{})
	h := newHarness(t, func(d *room.Dependencies) {
		d.Hooks.OnInitialized = func(_ string, err error) {
			mu.Lock()
			initErr = err
			mu.Unlock()
			close(done)
		}
	})
	h.authorizer.MintFunc = func(string, string, *room.ParticipantInfo) (*room.Credential, error) {
		return nil, errors.New("bad secret")
	}

	require.Equal(t, room.AcquireStarted, h.acquire(t, "r1").Status)
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("initialization did not finish")
	}
	mu.Lock()
	defer mu.Unlock()
	require.ErrorIs(t, initErr, room.ErrInitialization)
	require.Empty(t, h.connector.Conns("r1"))
	h.waitGone(t, "r1")
}

func TestSession_RequestsWhileInitializingAreNotEvicted(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, nil)
	h.connector.EnterFunc = func(ctx context.Context, _ string, _ room.EnterOptions) error {
		select {
		case <-gate:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	require.Equal(t, room.AcquireStarted, h.acquire(t, "r1").Status)
	sess, ok := h.registry.Lookup("r1")
	require.True(t, ok)
	require.Equal(t, room.StateInitializing, sess.State())

	for i := 0; i < 3; i++ {
		require.Equal(t, room.AcquireNotEvicted, h.acquire(t, "r1").Status)
	}

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, sess.WaitActive(ctx))
	require.Len(t, h.connector.Conns("r1"), 1)
}

func TestSession_EvictWhileInitializing(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, nil)
	h.connector.EnterFunc = func(context.Context, string, room.EnterOptions) error {
		<-gate
		return nil
	}
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	h.acquire(t, "r1")
	sess, ok := h.registry.Lookup("r1")
	require.True(t, ok)

	require.NoError(t, sess.Evict(context.Background(), room.ReasonEvicted))
	require.Equal(t, room.StateInitializing, sess.State())

	close(gate)
	select {
	case <-sess.Done():
	case <-time.After(waitFor):
		t.Fatal("evicted session did not finish")
	}
	require.True(t, h.connector.Last("r1").Closed())
	require.Equal(t, 0, h.writer.Writes("r1"), "an evicted session writes no baseline")
}

func TestSession_PersistenceFailureKeepsSessionActive(t *testing.T) {
	h := newHarness(t, nil)
	h.writer.UpsertFunc = func(context.Context, *room.Snapshot) error {
		return errors.New("database is down")
	}
	h.connector.SetRoom("r1", roomtest.Room{Todos: roomtest.List("a"), Others: []string{"alice"}})

	sess := h.activate(t, "r1")
	h.connector.Last("r1").SetTodos("a", "b")

	require.Eventually(t, func() bool { return sess.Info().SnapshotsFailed == 2 }, waitFor, tick)
	require.Equal(t, room.StateActive, sess.State())
	require.Equal(t, 2, sess.Info().Items)
}

func TestSession_ConnectionEventsDoNotChangeState(t *testing.T) {
	var mu sync.Mutex
	kinds := map[string]int{}
	h := newHarness(t, func(d *room.Dependencies) {
		d.Hooks.OnEvent = func(_ string, kind string) {
			mu.Lock()
			kinds[kind]++
			mu.Unlock()
		}
	})
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	sess := h.activate(t, "r1")
	conn := h.connector.Last("r1")
	conn.Emit(room.ConnectionStatus{Status: room.StatusReconnecting})
	conn.Emit(room.ConnectionLost{Kind: room.LostConnection})
	conn.Emit(room.ConnectionLost{Kind: room.RestoredConnection})
	conn.Emit(room.ConnectionLost{Kind: room.FailedConnection, Err: errors.New("gone")})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return kinds["connection_lost"] == 3 && kinds["connection_status"] == 1
	}, waitFor, tick)
	require.Equal(t, room.StateActive, sess.State())
}

func TestSession_TransitionsFollowLifecycle(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	var reasons []room.TeardownReason
	h := newHarness(t, func(d *room.Dependencies) {
		d.Hooks.OnTransition = func(_ string, from, to room.State) {
			mu.Lock()
			transitions = append(transitions, fmt.Sprintf("%s->%s", from, to))
			mu.Unlock()
		}
		d.Hooks.OnTeardown = func(_ string, reason room.TeardownReason) {
			mu.Lock()
			reasons = append(reasons, reason)
			mu.Unlock()
		}
	})
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	sess := h.activate(t, "r1")
	h.connector.Last("r1").SetOthers()
	<-sess.Done()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		"idle->initializing",
		"initializing->active",
		"active->tearing_down",
		"tearing_down->idle",
	}, transitions)
	require.Equal(t, []room.TeardownReason{room.ReasonRoomEmpty}, reasons)
}

type fakeLease struct {
	mu       sync.Mutex
	held     map[string]bool
	extend   error
	released int
}

func (l *fakeLease) Acquire(_ context.Context, roomID string) (room.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[roomID] {
		return nil, room.ErrLeaseHeld
	}
	l.held[roomID] = true
	return &fakeLock{lease: l, roomID: roomID}, nil
}

type fakeLock struct {
	lease  *fakeLease
	roomID string
}

func (k *fakeLock) Extend(context.Context) error {
	k.lease.mu.Lock()
	defer k.lease.mu.Unlock()
	return k.lease.extend
}

func (k *fakeLock) Release(context.Context) error {
	k.lease.mu.Lock()
	defer k.lease.mu.Unlock()
	delete(k.lease.held, k.roomID)
	k.lease.released++
	return nil
}

func TestSession_LeaseHeldElsewhere(t *testing.T) {
	lease := &fakeLease{held: map[string]bool{"r1": true}}
	h := newHarness(t, func(d *room.Dependencies) { d.Lease = lease })
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	require.Equal(t, room.AcquireStarted, h.acquire(t, "r1").Status)
	h.waitGone(t, "r1")
	require.Empty(t, h.connector.Conns("r1"))
}

func TestSession_LeaseReleasedOnTeardown(t *testing.T) {
	lease := &fakeLease{}
	h := newHarness(t, func(d *room.Dependencies) { d.Lease = lease })
	h.connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})

	sess := h.activate(t, "r1")
	h.connector.Last("r1").SetOthers()
	<-sess.Done()

	lease.mu.Lock()
	defer lease.mu.Unlock()
	require.Equal(t, 1, lease.released)
	require.False(t, lease.held["r1"])
}

func TestSession_LostLeaseTearsDown(t *testing.T) {
	lease := &fakeLease{extend: errors.New("expired")}
	authorizer := &roomtest.Authorizer{}
	connector := &roomtest.Connector{}
	connector.SetRoom("r1", roomtest.Room{Others: []string{"alice"}})
	reg := room.NewRegistry(1, room.SessionConfig{LeaseRenewInterval: 10 * time.Millisecond}, room.Dependencies{
		Authorizer: authorizer,
		Writer:     &roomtest.Writer{},
		Connector:  connector,
		Lease:      lease,
	}, zerolog.Nop())
	defer reg.Close(context.Background())

	_, err := reg.Acquire(context.Background(), "r1")
	require.NoError(t, err)
	sess, ok := reg.Lookup("r1")
	require.True(t, ok)

	select {
	case <-sess.Done():
	case <-time.After(waitFor):
		t.Fatal("session kept running without its lease")
	}
	require.True(t, connector.Last("r1").Closed())
}
