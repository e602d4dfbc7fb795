package reaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/infrastructure/livekit"
	"github.com/janhq/room-bridge/internal/infrastructure/metrics"
)

// RoomLister lists rooms and participants on the LiveKit server.
type RoomLister interface {
	ListActiveRooms(ctx context.Context) (map[string]livekit.RoomInfo, error)
	ListParticipants(ctx context.Context, roomName string) ([]string, error)
}

// SessionSource enumerates the live room sessions.
type SessionSource interface {
	Sessions() []*room.Session
}

// Reaper reconciles room sessions with LiveKit:
// - active sessions receive the server's participant list as a presence event
// - sessions that stayed without human participants past staleTTL are evicted
type Reaper struct {
	sessions  SessionSource
	rooms     RoomLister
	staleTTL  time.Duration
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewReaper creates a new session reaper.
func NewReaper(
	sessions SessionSource,
	rooms RoomLister,
	staleTTL time.Duration,
	interval time.Duration,
	log zerolog.Logger,
) *Reaper {
	return &Reaper{
		sessions: sessions,
		rooms:    rooms,
		staleTTL: staleTTL,
		interval: interval,
		log:      log.With().Str("component", "session-reaper").Logger(),
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start begins the reconciliation loop in background.
// Safe to call multiple times - only the first call starts the reaper.
func (r *Reaper) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.run(ctx)
		r.log.Info().Dur("interval", r.interval).Msg("session reaper started")
	})
}

// Stop gracefully shuts down the reaper.
// Safe to call multiple times - only the first call stops the reaper.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.log.Info().Msg("session reaper stopped")
	})
}

func (r *Reaper) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Debug().Msg("context cancelled, shutting down reaper")
			return
		case <-r.done:
			r.log.Debug().Msg("done signal received, shutting down reaper")
			return
		case <-ticker.C:
			r.Sync(ctx)
		}
	}
}

// Sync runs one reconciliation pass.
func (r *Reaper) Sync(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ReaperSyncDuration.Observe(time.Since(start).Seconds()) }()

	sessions := r.sessions.Sessions()
	if len(sessions) == 0 {
		return
	}

	activeRooms, err := r.rooms.ListActiveRooms(ctx)
	if err != nil {
		metrics.ReaperSyncErrors.Inc()
		r.log.Warn().Err(err).Msg("failed to list rooms from LiveKit, falling back to TTL cleanup")
		r.evictStale(ctx, sessions)
		return
	}

	ours := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ours = append(ours, fmt.Sprintf("%s(%s)", sess.RoomID(), sess.State()))
	}
	r.log.Debug().
		Int("livekit_rooms", len(activeRooms)).
		Strs("our_sessions", ours).
		Msg("sync cycle")

	for _, sess := range sessions {
		if sess.State() != room.StateActive {
			continue
		}

		var others []string
		if info, ok := activeRooms[sess.RoomID()]; ok && info.NumParticipants > 0 {
			others, err = r.rooms.ListParticipants(ctx, sess.RoomID())
			if err != nil {
				metrics.ReaperSyncErrors.Inc()
				r.log.Warn().Err(err).Str("room_id", sess.RoomID()).Msg("failed to list participants")
				continue
			}
		}
		sess.Deliver(room.PresenceChanged{Others: others})
	}

	r.evictStale(ctx, sessions)
}

// evictStale tears down active sessions that have had no human participants
// for longer than staleTTL.
func (r *Reaper) evictStale(ctx context.Context, sessions []*room.Session) {
	now := r.now()
	evicted := 0
	for _, sess := range sessions {
		info := sess.Info()
		if info.State != room.StateActive || info.EmptySince.IsZero() {
			continue
		}
		age := now.Sub(info.EmptySince)
		if age <= r.staleTTL {
			continue
		}
		if err := sess.Evict(ctx, room.ReasonStale); err != nil {
			r.log.Warn().Err(err).Str("room_id", info.RoomID).Msg("failed to evict stale session")
			continue
		}
		evicted++
		r.log.Info().
			Str("action", "evicted").
			Str("room_id", info.RoomID).
			Str("reason", string(room.ReasonStale)).
			Dur("empty_for", age).
			Msg("session cleanup")
	}

	if evicted > 0 {
		r.log.Info().Int("stale_evicted", evicted).Msg("stale session cleanup completed")
	}
}
