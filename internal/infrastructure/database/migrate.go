package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/janhq/room-bridge/internal/infrastructure/database/entities"
)

// AutoMigrate applies the snapshot schema.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.RoomSnapshot{},
	); err != nil {
		return err
	}

	log.Info().Msg("database schema up to date")
	return nil
}
