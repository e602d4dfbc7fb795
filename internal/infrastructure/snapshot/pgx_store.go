package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/room-bridge/internal/domain/room"
)

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS room_snapshots (
			room_id    TEXT PRIMARY KEY,
			todos      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`

	upsertSQL = `
		INSERT INTO room_snapshots (room_id, todos, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (room_id) DO UPDATE
		SET todos = EXCLUDED.todos, updated_at = now()
	`

	selectSQL = `
		SELECT room_id, todos, updated_at
		FROM room_snapshots
		WHERE room_id = $1
	`
)

// Querier is the subset of pgxpool.Pool used by PgxStore.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxStore persists snapshots with raw SQL over a pgx pool.
type PgxStore struct {
	db     Querier
	tracer trace.Tracer
}

// NewPgxStore creates a pgx-backed snapshot store.
func NewPgxStore(db Querier) *PgxStore {
	return &PgxStore{db: db, tracer: otel.Tracer(tracerName)}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *PgxStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create room_snapshots: %w", err)
	}
	return nil
}

// Upsert writes the snapshot, replacing the previous one of the room.
func (s *PgxStore) Upsert(ctx context.Context, snap *room.Snapshot) error {
	ctx, span := s.tracer.Start(ctx, "snapshot.upsert", trace.WithAttributes(
		attribute.String("room.id", snap.RoomID),
		attribute.Int("snapshot.bytes", len(snap.Todos)),
	))
	defer span.End()

	if _, err := s.db.Exec(ctx, upsertSQL, snap.RoomID, snap.Todos); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return fmt.Errorf("upsert room snapshot: %w", err)
	}
	return nil
}

// Get returns the latest snapshot of a room.
func (s *PgxStore) Get(ctx context.Context, roomID string) (*room.Snapshot, error) {
	var snap room.Snapshot
	err := s.db.QueryRow(ctx, selectSQL, roomID).Scan(&snap.RoomID, &snap.Todos, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, room.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room snapshot: %w", err)
	}
	return &snap, nil
}
