package snapshot

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/infrastructure/database/entities"
)

const tracerName = "github.com/janhq/room-bridge/internal/infrastructure/snapshot"

// GormStore persists snapshots through GORM.
type GormStore struct {
	db     *gorm.DB
	tracer trace.Tracer
}

// NewGormStore creates a GORM-backed snapshot store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, tracer: otel.Tracer(tracerName)}
}

// upsertClause overwrites the row of a room, stamping it with the database clock.
func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"todos":      gorm.Expr("excluded.todos"),
			"updated_at": gorm.Expr("now()"),
		}),
	}
}

// upsertValues is the inserted row; updated_at comes from the database.
func upsertValues(snap *room.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"room_id":    snap.RoomID,
		"todos":      snap.Todos,
		"updated_at": gorm.Expr("now()"),
	}
}

// Upsert writes the snapshot, replacing the previous one of the room.
func (s *GormStore) Upsert(ctx context.Context, snap *room.Snapshot) error {
	ctx, span := s.tracer.Start(ctx, "snapshot.upsert", trace.WithAttributes(
		attribute.String("room.id", snap.RoomID),
		attribute.Int("snapshot.bytes", len(snap.Todos)),
	))
	defer span.End()

	if err := s.db.WithContext(ctx).
		Model(&entities.RoomSnapshot{}).
		Clauses(upsertClause()).
		Create(upsertValues(snap)).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return fmt.Errorf("upsert room snapshot: %w", err)
	}
	return nil
}

// Get returns the latest snapshot of a room.
func (s *GormStore) Get(ctx context.Context, roomID string) (*room.Snapshot, error) {
	var row entities.RoomSnapshot
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, room.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room snapshot: %w", err)
	}
	return row.EtoD(), nil
}
