package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

// maxAcquireAttempts bounds how often a request chases a session that closed
// between lookup and delivery.
const maxAcquireAttempts = 8

// ErrRegistryClosed is returned once the registry has been shut down.
var ErrRegistryClosed = errors.New("session registry closed")

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// Registry keeps at most one session per room. Rooms are partitioned over
// shards by hashing the room ID; each shard has its own lock.
type Registry struct {
	shards []*shard
	cfg    SessionConfig
	deps   Dependencies
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool
}

// NewRegistry creates a registry with the given number of shards.
func NewRegistry(shards int, cfg SessionConfig, deps Dependencies, log zerolog.Logger) *Registry {
	if shards <= 0 {
		shards = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		shards: make([]*shard, shards),
		cfg:    cfg,
		deps:   deps,
		log:    log.With().Str("component", "session-registry").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return r
}

// Handle returns the stable partition handle for a room.
func Handle(roomID string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(roomID))
}

func (r *Registry) shardFor(roomID string) *shard {
	return r.shards[xxhash.Sum64String(roomID)%uint64(len(r.shards))]
}

// GetOrCreate returns the live session of a room, creating one if needed.
func (r *Registry) GetOrCreate(roomID string) (*Session, error) {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if s, ok := sh.sessions[roomID]; ok && !s.Closed() {
		return s, nil
	}

	s := newSession(r.ctx, roomID, Handle(roomID), r.cfg, r.deps, &r.wg, r.remove, r.log)
	sh.sessions[roomID] = s
	return s, nil
}

// Lookup returns the live session of a room without creating one.
func (r *Registry) Lookup(roomID string) (*Session, bool) {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[roomID]
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// Acquire routes a lifecycle request to the room's session.
func (r *Registry) Acquire(ctx context.Context, roomID string) (*AcquireResult, error) {
	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		s, err := r.GetOrCreate(roomID)
		if err != nil {
			return nil, err
		}
		status, err := s.Acquire(ctx)
		if errors.Is(err, ErrSessionClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &AcquireResult{Status: status, Handle: s.Handle()}, nil
	}
	return nil, fmt.Errorf("acquire room %s: %w", roomID, ErrSessionClosed)
}

// List returns all live sessions ordered by room ID.
func (r *Registry) List() []SessionInfo {
	var out []SessionInfo
	for _, sh := range r.shards {
		sh.mu.Lock()
		for _, s := range sh.sessions {
			if !s.Closed() {
				out = append(out, s.Info())
			}
		}
		sh.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

// Sessions returns all live sessions.
func (r *Registry) Sessions() []*Session {
	var out []*Session
	for _, sh := range r.shards {
		sh.mu.Lock()
		for _, s := range sh.sessions {
			if !s.Closed() {
				out = append(out, s)
			}
		}
		sh.mu.Unlock()
	}
	return out
}

// remove drops a finished session, unless a newer one already took its place.
func (r *Registry) remove(s *Session) {
	sh := r.shardFor(s.RoomID())
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.sessions[s.RoomID()]; ok && cur == s {
		delete(sh.sessions, s.RoomID())
	}
}

// Close tears down every session and waits for them to finish.
func (r *Registry) Close(ctx context.Context) error {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return nil
	}
	r.closed = true
	r.closeMu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info().Msg("all room sessions stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for room sessions: %w", ctx.Err())
	}
}
