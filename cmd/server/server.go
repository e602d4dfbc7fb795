// @title           Room Bridge API
// @version         1.0
// @description     Bridges collaborative LiveKit rooms to durable list snapshots.
// @description     Mints participant credentials and runs one bridging session per room.

// @contact.name   Jan Team
// @contact.url    https://github.com/janhq/jan-server

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8190
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token from Keycloak

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/config"
	"github.com/janhq/room-bridge/internal/domain"
	"github.com/janhq/room-bridge/internal/domain/room"
	"github.com/janhq/room-bridge/internal/infrastructure/auth"
	"github.com/janhq/room-bridge/internal/infrastructure/database"
	"github.com/janhq/room-bridge/internal/infrastructure/lease"
	"github.com/janhq/room-bridge/internal/infrastructure/livekit"
	"github.com/janhq/room-bridge/internal/infrastructure/logger"
	"github.com/janhq/room-bridge/internal/infrastructure/metrics"
	"github.com/janhq/room-bridge/internal/infrastructure/observability"
	"github.com/janhq/room-bridge/internal/infrastructure/reaper"
	"github.com/janhq/room-bridge/internal/infrastructure/snapshot"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/handlers"
	"github.com/janhq/room-bridge/internal/interfaces/httpserver/routes"
)

// Application holds the main application components.
type Application struct {
	httpServer *httpserver.HTTPServer
	reaper     *reaper.Reaper
	registry   *room.Registry
	cfg        *config.Config
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(
	httpServer *httpserver.HTTPServer,
	sessionReaper *reaper.Reaper,
	registry *room.Registry,
	cfg *config.Config,
	log zerolog.Logger,
) *Application {
	return &Application{
		httpServer: httpServer,
		reaper:     sessionReaper,
		registry:   registry,
		cfg:        cfg,
		log:        log,
	}
}

// Start runs the application.
func (a *Application) Start(ctx context.Context) error {
	// Start the session reaper
	a.reaper.Start(ctx)

	// Run HTTP server (blocks until context cancelled)
	err := a.httpServer.Run(ctx)

	// Stop the reaper before tearing down sessions
	a.reaper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if closeErr := a.registry.Close(shutdownCtx); closeErr != nil {
		a.log.Error().Err(closeErr).Msg("failed to stop room sessions")
	}

	return err
}

// snapshotBackend is the configured snapshot store plus its lifecycle.
type snapshotBackend struct {
	store room.SnapshotStore
	ping  httpserver.ReadinessCheck
	close func()
}

func openSnapshotBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*snapshotBackend, error) {
	switch cfg.SnapshotDriver {
	case config.SnapshotDriverGorm:
		db, err := database.Connect(database.NewConfig(cfg))
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return &snapshotBackend{
			store: snapshot.NewGormStore(db),
			ping: func(ctx context.Context) error {
				return database.Ping(ctx, db)
			},
			close: func() {
				if err := database.Close(db); err != nil {
					log.Error().Err(err).Msg("failed to close database")
				}
			},
		}, nil

	case config.SnapshotDriverPgx:
		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.DBMaxOpenConns)
		poolCfg.MaxConnLifetime = cfg.DBConnMaxLifetime
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("open pgx pool: %w", err)
		}
		store := snapshot.NewPgxStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure snapshot schema: %w", err)
		}
		log.Info().Msg("pgx snapshot store ready")
		return &snapshotBackend{
			store: store,
			ping:  pool.Ping,
			close: pool.Close,
		}, nil

	default:
		log.Warn().Msg("using in-memory snapshot store; snapshots are lost on restart")
		return &snapshotBackend{
			store: snapshot.NewMemoryStore(),
			close: func() {},
		}, nil
	}
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup observability
	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	// Initialize auth validator
	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth validator")
	}

	// Snapshot persistence
	backend, err := openSnapshotBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize snapshot store")
	}
	defer backend.close()

	checks := httpserver.ReadinessChecks{"auth": authValidator.Ready}
	if backend.ping != nil {
		checks["database"] = backend.ping
	}

	// Initialize LiveKit clients
	tokenGen := livekit.NewTokenGenerator(cfg)
	roomClient := livekit.NewRoomClient(cfg)
	connector := livekit.NewConnector(cfg, roomClient, log)

	deps := room.Dependencies{
		Authorizer: tokenGen,
		Writer:     backend.store,
		Connector:  connector,
		Hooks:      metrics.Hooks(),
	}

	// Optional cross-replica room lease
	if cfg.LeaseEnabled() {
		roomLease, err := lease.NewRedisLease(cfg.RedisURL, cfg.LeaseTTL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize room lease")
		}
		defer func() {
			if err := roomLease.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close redis client")
			}
		}()
		deps.Lease = roomLease
		checks["redis"] = roomLease.Ping
	}

	// Session registry and bridge service
	registry := domain.ProvideRegistry(cfg, domain.ProvideSessionConfig(cfg), deps, log)
	roomService := domain.ProvideRoomService(registry, tokenGen, backend.store, log)

	// Reconcile sessions with LiveKit
	sessionReaper := reaper.NewReaper(registry, roomClient, cfg.SessionStaleTTL, cfg.ReaperInterval, log)

	// Initialize HTTP server
	handlerProvider := handlers.NewProvider(handlers.NewRoomHandler(roomService))
	routeProvider := routes.NewProvider(handlerProvider, authValidator)
	httpServer := httpserver.New(cfg, log, routeProvider, checks)

	// Create and start application
	app := NewApplication(httpServer, sessionReaper, registry, cfg, log)

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("snapshot_driver", cfg.SnapshotDriver).
		Bool("lease_enabled", cfg.LeaseEnabled()).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
