package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Snapshot store drivers.
const (
	SnapshotDriverGorm   = "gorm"
	SnapshotDriverPgx    = "pgx"
	SnapshotDriverMemory = "memory"
)

// Config holds all configuration for the room-bridge service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"room-bridge"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"ROOM_BRIDGE_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"` // console or json
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Auth (Keycloak) for the /v1 admin API - uses global auth vars
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string `env:"ISSUER"`
	AuthAudience string `env:"AUDIENCE"`
	AuthJWKSURL  string `env:"JWKS_URL"`

	// LiveKit
	LiveKitWsURL     string        `env:"LIVEKIT_WS_URL" envDefault:"ws://localhost:7880"`
	LiveKitAPIKey    string        `env:"LIVEKIT_API_KEY"`
	LiveKitAPISecret string        `env:"LIVEKIT_API_SECRET"`
	LiveKitTokenTTL  time.Duration `env:"LIVEKIT_TOKEN_TTL" envDefault:"1h"`

	// Identity the bridge uses when it joins a room; the room ID is appended.
	ServiceIdentityPrefix string `env:"SERVICE_IDENTITY_PREFIX" envDefault:"bridge-worker"`

	// Snapshot persistence
	SnapshotDriver       string        `env:"SNAPSHOT_DRIVER" envDefault:"gorm"`
	DatabaseURL          string        `env:"DATABASE_URL"`
	DBMaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBConnMaxLifetime    time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	SnapshotWriteTimeout time.Duration `env:"SNAPSHOT_WRITE_TIMEOUT" envDefault:"5s"`

	// Cross-replica room lease; disabled when empty.
	RedisURL string        `env:"REDIS_URL"`
	LeaseTTL time.Duration `env:"ROOM_LEASE_TTL" envDefault:"30s"`

	// Session management
	RegistryShards     int           `env:"REGISTRY_SHARDS" envDefault:"64"`
	SessionMailboxSize int           `env:"SESSION_MAILBOX_SIZE" envDefault:"256"`
	SessionInitTimeout time.Duration `env:"SESSION_INIT_TIMEOUT" envDefault:"30s"`
	ReaperInterval     time.Duration `env:"SESSION_REAPER_INTERVAL" envDefault:"15s"`
	SessionStaleTTL    time.Duration `env:"SESSION_STALE_TTL" envDefault:"10m"` // how long an active session may stay without human participants
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and normalizes enumerations.
func (c *Config) Validate() error {
	if c.AuthEnabled {
		if strings.TrimSpace(c.AuthIssuer) == "" {
			return fmt.Errorf("ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(c.AuthAudience) == "" {
			return fmt.Errorf("AUDIENCE is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(c.AuthJWKSURL) == "" {
			return fmt.Errorf("JWKS_URL is required when AUTH_ENABLED is true")
		}
	}

	if strings.TrimSpace(c.LiveKitAPIKey) == "" {
		return fmt.Errorf("LIVEKIT_API_KEY is required")
	}
	if strings.TrimSpace(c.LiveKitAPISecret) == "" {
		return fmt.Errorf("LIVEKIT_API_SECRET is required")
	}

	c.SnapshotDriver = strings.ToLower(strings.TrimSpace(c.SnapshotDriver))
	switch c.SnapshotDriver {
	case SnapshotDriverGorm, SnapshotDriverPgx:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when SNAPSHOT_DRIVER is %s", c.SnapshotDriver)
		}
	case SnapshotDriverMemory:
	default:
		return fmt.Errorf("unsupported SNAPSHOT_DRIVER %q", c.SnapshotDriver)
	}

	if c.RegistryShards <= 0 {
		return fmt.Errorf("REGISTRY_SHARDS must be positive")
	}
	if c.SessionMailboxSize <= 0 {
		return fmt.Errorf("SESSION_MAILBOX_SIZE must be positive")
	}
	return nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// LeaseEnabled reports whether rooms are leased through Redis.
func (c *Config) LeaseEnabled() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}
