package domain

import (
	"time"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/config"
	"github.com/janhq/room-bridge/internal/domain/room"
)

// ProvideSessionConfig maps service configuration onto session tuning.
func ProvideSessionConfig(cfg *config.Config) room.SessionConfig {
	renew := time.Duration(0)
	if cfg.LeaseEnabled() {
		renew = cfg.LeaseTTL / 3
	}
	return room.SessionConfig{
		IdentityPrefix:     cfg.ServiceIdentityPrefix,
		MailboxSize:        cfg.SessionMailboxSize,
		InitTimeout:        cfg.SessionInitTimeout,
		WriteTimeout:       cfg.SnapshotWriteTimeout,
		LeaseRenewInterval: renew,
	}
}

// ProvideRegistry provides the session registry.
func ProvideRegistry(cfg *config.Config, sessionCfg room.SessionConfig, deps room.Dependencies, log zerolog.Logger) *room.Registry {
	return room.NewRegistry(cfg.RegistryShards, sessionCfg, deps, log)
}

// ProvideRoomService provides the bridge service.
func ProvideRoomService(
	registry *room.Registry,
	authorizer room.Authorizer,
	snapshots room.SnapshotStore,
	log zerolog.Logger,
) room.Service {
	return room.NewService(registry, authorizer, snapshots, log)
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideSessionConfig,
	ProvideRegistry,
	ProvideRoomService,
)
