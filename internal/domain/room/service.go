package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// DispatchRequest is an inbound bridge request.
type DispatchRequest struct {
	RoomID string
	UserID string
}

// DispatchResult carries either a credential or a lifecycle answer.
type DispatchResult struct {
	Credential *Credential
	Acquire    *AcquireResult
}

// Service defines the business operations of the bridge.
type Service interface {
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error)
	MintCredential(ctx context.Context, roomID, userID string) (*Credential, error)
	AcquireSession(ctx context.Context, roomID string) (*AcquireResult, error)
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	GetSession(ctx context.Context, roomID string) (*SessionInfo, error)
	EvictSession(ctx context.Context, roomID string) error
	WaitActive(ctx context.Context, roomID string) error
	GetSnapshot(ctx context.Context, roomID string) (*Snapshot, error)
}

type service struct {
	registry   *Registry
	authorizer Authorizer
	snapshots  SnapshotStore
	log        zerolog.Logger
}

// NewService creates the bridge service.
func NewService(registry *Registry, authorizer Authorizer, snapshots SnapshotStore, log zerolog.Logger) Service {
	return &service{
		registry:   registry,
		authorizer: authorizer,
		snapshots:  snapshots,
		log:        log.With().Str("component", "room-service").Logger(),
	}
}

// Dispatch applies the routing rule: no room is NotFound, room and user mint a
// credential, room alone is a lifecycle request.
func (s *service) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	roomID := req.RoomID
	if roomID == "" {
		return nil, ErrNotFound
	}

	if userID := req.UserID; userID != "" {
		cred, err := s.MintCredential(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
		return &DispatchResult{Credential: cred}, nil
	}

	res, err := s.AcquireSession(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &DispatchResult{Acquire: res}, nil
}

func (s *service) MintCredential(_ context.Context, roomID, userID string) (*Credential, error) {
	cred, err := s.authorizer.Mint(roomID, userID, nil)
	if err != nil {
		s.log.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("failed to mint credential")
		if errors.Is(err, ErrAuthFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrAuthFailure, err)
	}
	return cred, nil
}

func (s *service) AcquireSession(ctx context.Context, roomID string) (*AcquireResult, error) {
	res, err := s.registry.Acquire(ctx, roomID)
	if err != nil {
		s.log.Error().Err(err).Str("room_id", roomID).Msg("failed to route lifecycle request")
		return nil, err
	}
	s.log.Debug().
		Str("room_id", roomID).
		Str("status", string(res.Status)).
		Str("handle", res.Handle).
		Msg("lifecycle request routed")
	return res, nil
}

func (s *service) ListSessions(_ context.Context) ([]SessionInfo, error) {
	return s.registry.List(), nil
}

func (s *service) GetSession(_ context.Context, roomID string) (*SessionInfo, error) {
	sess, ok := s.registry.Lookup(roomID)
	if !ok {
		return nil, ErrNotFound
	}
	info := sess.Info()
	return &info, nil
}

func (s *service) EvictSession(ctx context.Context, roomID string) error {
	sess, ok := s.registry.Lookup(roomID)
	if !ok {
		return ErrNotFound
	}
	if err := sess.Evict(ctx, ReasonEvicted); err != nil && !errors.Is(err, ErrSessionClosed) {
		return err
	}
	s.log.Info().Str("room_id", roomID).Msg("room session evicted")
	return nil
}

func (s *service) WaitActive(ctx context.Context, roomID string) error {
	sess, ok := s.registry.Lookup(roomID)
	if !ok {
		return ErrNotFound
	}
	return sess.WaitActive(ctx)
}

func (s *service) GetSnapshot(ctx context.Context, roomID string) (*Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotNotFound
	}
	return s.snapshots.Get(ctx, roomID)
}
