//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/config"
	"github.com/janhq/room-bridge/internal/domain"
	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/infrastructure/auth"
	"github.com/janhq/room-bridge/internal/infrastructure/livekit"
	"github.com/janhq/room-bridge/internal/infrastructure/metrics"
	"github.com/janhq/room-bridge/internal/infrastructure/reaper"
	"github.com/janhq/room-bridge/internal/interfaces"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver"
)

// ProviderSet is the wire provider set for the application.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvideTokenGenerator,
	ProvideRoomClient,
	ProvideConnector,
	ProvideSnapshotStore,
	ProvideReadinessChecks,
	ProvideDependencies,
	ProvideReaper,
	ProvideAuthValidator,

	// Domain providers
	domain.ServiceProvider,

	// Interface providers
	interfaces.InterfacesProvider,

	// Application
	NewApplication,
)

// ProvideTokenGenerator provides a LiveKit token generator.
func ProvideTokenGenerator(cfg *config.Config) room.Authorizer {
	return livekit.NewTokenGenerator(cfg)
}

// ProvideRoomClient provides a LiveKit room client.
func ProvideRoomClient(cfg *config.Config) *livekit.RoomClient {
	return livekit.NewRoomClient(cfg)
}

// ProvideConnector provides the LiveKit room connector.
func ProvideConnector(cfg *config.Config, roomClient *livekit.RoomClient, log zerolog.Logger) room.Connector {
	return livekit.NewConnector(cfg, roomClient, log)
}

// ProvideSnapshotStore provides the configured snapshot store.
func ProvideSnapshotStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*snapshotBackend, error) {
	return openSnapshotBackend(ctx, cfg, log)
}

// ProvideReadinessChecks provides the /readyz checks.
func ProvideReadinessChecks(backend *snapshotBackend, authValidator *auth.Validator) httpserver.ReadinessChecks {
	checks := httpserver.ReadinessChecks{"auth": authValidator.Ready}
	if backend.ping != nil {
		checks["database"] = backend.ping
	}
	return checks
}

// ProvideDependencies provides the collaborators of every room session.
func ProvideDependencies(
	authorizer room.Authorizer,
	backend *snapshotBackend,
	connector room.Connector,
) room.Dependencies {
	return room.Dependencies{
		Authorizer: authorizer,
		Writer:     backend.store,
		Connector:  connector,
		Hooks:      metrics.Hooks(),
	}
}

// ProvideSnapshots exposes the store for the bridge service.
func ProvideSnapshots(backend *snapshotBackend) room.SnapshotStore {
	return backend.store
}

// ProvideReaper provides the session reaper.
func ProvideReaper(
	registry *room.Registry,
	roomClient *livekit.RoomClient,
	cfg *config.Config,
	log zerolog.Logger,
) *reaper.Reaper {
	return reaper.NewReaper(registry, roomClient, cfg.SessionStaleTTL, cfg.ReaperInterval, log)
}

// ProvideAuthValidator provides an auth validator.
func ProvideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
) (*Application, error) {
	wire.Build(ProviderSet, ProvideSnapshots)
	return nil, nil
}
