package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/utils/idgen"
)

// SessionConfig tunes session behavior.
type SessionConfig struct {
	// IdentityPrefix namespaces the service identity; the room ID is appended.
	IdentityPrefix string
	MailboxSize    int
	FlushBuffer    int
	InitTimeout    time.Duration
	WriteTimeout   time.Duration
	// LeaseRenewInterval is how often a held lease is extended. Zero disables renewal.
	LeaseRenewInterval time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.IdentityPrefix == "" {
		c.IdentityPrefix = "bridge-worker"
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = 256
	}
	if c.FlushBuffer <= 0 {
		c.FlushBuffer = 64
	}
	if c.InitTimeout <= 0 {
		c.InitTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Dependencies are the collaborators of a session.
type Dependencies struct {
	Authorizer Authorizer
	Writer     SnapshotWriter
	Connector  Connector
	Lease      Lease
	Hooks      Hooks
}

type acquireMsg struct {
	reply chan AcquireStatus
}

type eventMsg struct {
	ev Event
}

type initDoneMsg struct {
	conn Connection
	root *StorageRoot
	lock Lock
	err  error
}

type evictMsg struct {
	reason TeardownReason
	reply  chan error
}

// Session bridges one room. All state transitions happen on the session's own
// goroutine, which consumes the mailbox one message at a time.
type Session struct {
	id     string
	roomID string
	handle string
	cfg    SessionConfig
	deps   Dependencies
	log    zerolog.Logger

	// ctx bounds initialization. writeCtx carries the registry values but is never
	// cancelled, so queued snapshots still flush during shutdown.
	ctx      context.Context
	cancel   context.CancelFunc
	writeCtx context.Context

	mailbox  chan any
	done     chan struct{}
	activeCh chan struct{}
	closing  atomic.Bool
	onClosed func(*Session)
	wg       *sync.WaitGroup

	// Owned by the session goroutine.
	state        State
	conn         Connection
	root         *StorageRoot
	lock         Lock
	flush        chan *Snapshot
	others       int
	storageDirty bool
	evictPending TeardownReason

	written atomic.Int64
	failed  atomic.Int64

	mu   sync.RWMutex
	info SessionInfo
}

func newSession(ctx context.Context, roomID, handle string, cfg SessionConfig, deps Dependencies, wg *sync.WaitGroup, onClosed func(*Session), log zerolog.Logger) *Session {
	cfg = cfg.withDefaults()
	if deps.Lease == nil {
		deps.Lease = noLease{}
	}

	id, err := idgen.GenerateSecureID("rsess", 24)
	if err != nil {
		id = "rsess_" + handle
	}

	sessCtx, cancel := context.WithCancel(ctx)
	now := time.Now().UTC()
	s := &Session{
		id:       id,
		roomID:   roomID,
		handle:   handle,
		cfg:      cfg,
		deps:     deps,
		ctx:      sessCtx,
		cancel:   cancel,
		writeCtx: context.WithoutCancel(ctx),
		mailbox:  make(chan any, cfg.MailboxSize),
		done:     make(chan struct{}),
		activeCh: make(chan struct{}),
		onClosed: onClosed,
		wg:       wg,
		state:    StateIdle,
		log: log.With().
			Str("component", "room-session").
			Str("room_id", roomID).
			Str("session_id", id).
			Logger(),
		info: SessionInfo{
			ID:        id,
			Handle:    handle,
			RoomID:    roomID,
			State:     StateIdle,
			CreatedAt: now,
		},
	}

	wg.Add(1)
	go s.run()
	return s
}

// ID returns the incarnation ID of the session.
func (s *Session) ID() string { return s.id }

// RoomID returns the room the session bridges.
func (s *Session) RoomID() string { return s.roomID }

// Handle returns the partition handle of the room.
func (s *Session) Handle() string { return s.handle }

// Identity returns the service identity used to join the room.
func (s *Session) Identity() string {
	return ServiceIdentity(s.cfg.IdentityPrefix, s.roomID)
}

// ServiceIdentity builds the identity the bridge uses in a room.
func ServiceIdentity(prefix, roomID string) string {
	return prefix + "-" + roomID
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.State
}

// Info returns a snapshot of the session's public state.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	info := s.info
	s.mu.RUnlock()
	info.SnapshotsWritten = s.written.Load()
	info.SnapshotsFailed = s.failed.Load()
	return info
}

// Done is closed once the session has left its room for good.
func (s *Session) Done() <-chan struct{} { return s.done }

// Closed reports whether the session has finished.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Acquire handles a lifecycle request. The first request starts initialization
// in the background and returns AcquireStarted; later requests return
// AcquireNotEvicted without side effects.
func (s *Session) Acquire(ctx context.Context) (AcquireStatus, error) {
	reply := make(chan AcquireStatus, 1)
	if err := s.send(ctx, acquireMsg{reply: reply}); err != nil {
		return "", err
	}
	select {
	case status := <-reply:
		return status, nil
	case <-s.done:
		select {
		case status := <-reply:
			return status, nil
		default:
			return "", ErrSessionClosed
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Evict tears the session down. Evicting an initializing session takes effect
// once initialization finishes.
func (s *Session) Evict(ctx context.Context, reason TeardownReason) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, evictMsg{reason: reason, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver queues an event for the session. Events for a closed or closing
// session are dropped.
func (s *Session) Deliver(ev Event) {
	if ev == nil || s.closing.Load() {
		return
	}
	select {
	case s.mailbox <- eventMsg{ev: ev}:
	case <-s.done:
	}
}

// WaitActive blocks until the session is active.
func (s *Session) WaitActive(ctx context.Context) error {
	select {
	case <-s.activeCh:
		return nil
	case <-s.done:
		select {
		case <-s.activeCh:
			return nil
		default:
			return ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) send(ctx context.Context, msg any) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.mailbox <- msg:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run() {
	defer s.wg.Done()
	defer s.finish()

	var renew <-chan time.Time
	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	shutdown := s.ctx.Done()
	for {
		select {
		case msg := <-s.mailbox:
			if stop := s.process(msg); stop {
				return
			}
			if ticker == nil && s.state == StateActive && s.cfg.LeaseRenewInterval > 0 {
				ticker = time.NewTicker(s.cfg.LeaseRenewInterval)
				renew = ticker.C
			}
		case <-renew:
			if stop := s.renewLease(); stop {
				return
			}
		case <-shutdown:
			shutdown = nil
			if s.state == StateInitializing {
				// The init task still owns a possible connection; finish once it reports back.
				s.evictPending = ReasonShutdown
				continue
			}
			s.teardown(ReasonShutdown)
			return
		}
	}
}

// process handles one mailbox message and reports whether the session is finished.
func (s *Session) process(msg any) bool {
	switch m := msg.(type) {
	case acquireMsg:
		if s.state != StateIdle {
			m.reply <- AcquireNotEvicted
			return false
		}
		s.transition(StateInitializing)
		s.wg.Add(1)
		go s.initialize()
		m.reply <- AcquireStarted
		return false

	case initDoneMsg:
		return s.activate(m)

	case eventMsg:
		return s.onEvent(m.ev)

	case evictMsg:
		switch s.state {
		case StateInitializing:
			s.evictPending = m.reason
			m.reply <- nil
			return false
		case StateActive:
			s.teardown(m.reason)
			m.reply <- nil
			return true
		default:
			m.reply <- nil
			return true
		}
	}
	return false
}

// initialize runs detached from the request that triggered it.
func (s *Session) initialize() {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.InitTimeout)
	defer cancel()

	res := initDoneMsg{}
	res.lock, res.conn, res.root, res.err = s.enter(ctx)

	// The session goroutine does not exit while initialization is outstanding,
	// so this send is always consumed.
	s.mailbox <- res
}

func (s *Session) enter(ctx context.Context) (Lock, Connection, *StorageRoot, error) {
	lock, err := s.deps.Lease.Acquire(ctx, s.roomID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: acquire lease: %w", ErrInitialization, err)
	}

	release := func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
		defer cancel()
		if err := lock.Release(relCtx); err != nil {
			s.log.Warn().Err(err).Msg("failed to release room lease")
		}
	}

	identity := s.Identity()
	info := ParticipantInfo{Bot: true, IsTyping: false}
	cred, err := s.deps.Authorizer.Mint(s.roomID, identity, &info)
	if err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("%w: mint service credential: %w", ErrInitialization, err)
	}

	conn, err := s.deps.Connector.Enter(ctx, s.roomID, EnterOptions{
		Identity:    identity,
		Credential:  cred,
		Info:        info,
		AutoConnect: true,
	}, s.Deliver)
	if err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("%w: enter room: %w", ErrInitialization, err)
	}

	root, err := conn.Storage(ctx)
	if err != nil {
		conn.Close()
		release()
		return nil, nil, nil, fmt.Errorf("%w: get storage: %w", ErrInitialization, err)
	}

	return lock, conn, root, nil
}

func (s *Session) activate(m initDoneMsg) bool {
	if s.deps.Hooks.OnInitialized != nil {
		s.deps.Hooks.OnInitialized(s.roomID, m.err)
	}
	if m.err != nil {
		s.log.Error().Err(m.err).Msg("failed to initialize room session")
		s.transition(StateIdle)
		return true
	}

	s.conn = m.conn
	s.lock = m.lock
	s.root = m.root
	if s.evictPending != "" {
		s.teardown(s.evictPending)
		return true
	}
	if s.root == nil {
		s.root = &StorageRoot{}
	}

	if s.storageDirty {
		// Storage changed while initializing; the connection holds the newest value.
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.InitTimeout)
		root, err := s.conn.Storage(ctx)
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to refresh storage after initialization")
		} else if root != nil {
			s.root = root
		}
		s.storageDirty = false
	}
	if s.root.Todos == nil {
		s.root.Todos = List{}
	}

	s.others = s.countHumans(s.conn.Others())

	s.flush = make(chan *Snapshot, s.cfg.FlushBuffer)
	s.wg.Add(1)
	go s.runFlusher(s.flush)

	// Baseline, so the store is never behind the state the room had when the bridge arrived.
	s.persist()

	now := time.Now().UTC()
	s.mu.Lock()
	s.info.ActivatedAt = now
	s.info.Participants = s.others
	s.info.Items = len(s.root.Todos)
	if s.others == 0 {
		s.info.EmptySince = now
	}
	s.mu.Unlock()

	s.transition(StateActive)
	close(s.activeCh)

	s.log.Info().
		Int("participants", s.others).
		Int("items", len(s.root.Todos)).
		Msg("room session active")
	return false
}

func (s *Session) onEvent(ev Event) bool {
	kind := EventKind(ev)
	if s.deps.Hooks.OnEvent != nil {
		s.deps.Hooks.OnEvent(s.roomID, kind)
	}

	switch e := ev.(type) {
	case StorageChanged:
		switch s.state {
		case StateInitializing:
			s.storageDirty = true
		case StateActive:
			s.root.Todos = e.Todos
			if s.root.Todos == nil {
				s.root.Todos = List{}
			}
			s.mu.Lock()
			s.info.Items = len(s.root.Todos)
			s.mu.Unlock()
			s.persist()
		}

	case PresenceChanged:
		if s.state != StateActive {
			return false
		}
		n := s.countHumans(e.Others)
		prev := s.others
		s.others = n

		s.mu.Lock()
		s.info.Participants = n
		if n == 0 && s.info.EmptySince.IsZero() {
			s.info.EmptySince = time.Now().UTC()
		} else if n > 0 {
			s.info.EmptySince = time.Time{}
		}
		s.mu.Unlock()

		if prev >= 1 && n == 0 {
			s.log.Info().Msg("last participant left, destroying room session")
			s.teardown(ReasonRoomEmpty)
			return true
		}

	case ConnectionStatus:
		s.log.Info().Str("status", e.Status).Msg("connection status changed")

	case ConnectionLost:
		switch e.Kind {
		case LostConnection:
			s.log.Warn().Msg("still trying to reconnect")
		case RestoredConnection:
			s.log.Info().Msg("successfully reconnected")
		case FailedConnection:
			s.log.Error().Err(e.Err).Msg("could not restore the connection")
		default:
			s.log.Warn().Str("kind", e.Kind).Err(e.Err).Msg("connection event")
		}
	}
	return false
}

// persist serializes the whole current list and hands it to the flusher.
func (s *Session) persist() {
	snap, err := NewSnapshot(s.roomID, s.root.Todos)
	if err != nil {
		s.failed.Add(1)
		s.log.Error().Err(fmt.Errorf("%w: serialize: %w", ErrPersistence, err)).Msg("failed to serialize snapshot")
		return
	}
	s.flush <- snap
}

func (s *Session) runFlusher(ch <-chan *Snapshot) {
	defer s.wg.Done()
	for snap := range ch {
		ctx, cancel := context.WithTimeout(s.writeCtx, s.cfg.WriteTimeout)
		err := s.deps.Writer.Upsert(ctx, snap)
		cancel()

		if err != nil {
			s.failed.Add(1)
			s.log.Error().
				Err(fmt.Errorf("%w: %w", ErrPersistence, err)).
				Msg("failed to write snapshot")
		} else {
			s.written.Add(1)
			s.log.Debug().Int("bytes", len(snap.Todos)).Msg("snapshot written")
		}
		if s.deps.Hooks.OnSnapshotWritten != nil {
			s.deps.Hooks.OnSnapshotWritten(s.roomID, err)
		}
	}
}

func (s *Session) renewLease() bool {
	if s.lock == nil || s.state != StateActive {
		return false
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.WriteTimeout)
	err := s.lock.Extend(ctx)
	cancel()
	if err == nil {
		return false
	}
	s.log.Error().Err(err).Msg("lost room lease")
	s.teardown(ReasonLeaseLost)
	return true
}

// teardown leaves the room. Calling it again is a no-op.
func (s *Session) teardown(reason TeardownReason) {
	if s.state == StateTearingDown || s.state == StateIdle {
		return
	}
	s.transition(StateTearingDown)
	s.closing.Store(true)

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.root = nil
	if s.flush != nil {
		close(s.flush)
		s.flush = nil
	}
	if s.lock != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.cfg.WriteTimeout)
		if err := s.lock.Release(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to release room lease")
		}
		cancel()
		s.lock = nil
	}

	if s.deps.Hooks.OnTeardown != nil {
		s.deps.Hooks.OnTeardown(s.roomID, reason)
	}
	s.log.Info().Str("reason", string(reason)).Msg("room session torn down")
	s.transition(StateIdle)
}

func (s *Session) finish() {
	s.closing.Store(true)
	if s.state != StateIdle {
		s.teardown(ReasonShutdown)
	}
	if s.onClosed != nil {
		s.onClosed(s)
	}
	close(s.done)
	s.cancel()
}

func (s *Session) transition(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.mu.Lock()
	s.info.State = to
	s.mu.Unlock()

	s.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("state transition")
	if s.deps.Hooks.OnTransition != nil {
		s.deps.Hooks.OnTransition(s.roomID, from, to)
	}
}

// countHumans counts participants that are not bridge identities.
func (s *Session) countHumans(identities []string) int {
	prefix := s.cfg.IdentityPrefix + "-"
	n := 0
	for _, id := range identities {
		if id == "" || strings.HasPrefix(id, prefix) {
			continue
		}
		n++
	}
	return n
}

type noLease struct{}

func (noLease) Acquire(context.Context, string) (Lock, error) { return noLock{}, nil }

type noLock struct{}

func (noLock) Extend(context.Context) error  { return nil }
func (noLock) Release(context.Context) error { return nil }
