package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LIVEKIT_API_KEY", "key")
	t.Setenv("LIVEKIT_API_SECRET", "secret")
	t.Setenv("SNAPSHOT_DRIVER", "memory")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "room-bridge", cfg.ServiceName)
	require.Equal(t, 8190, cfg.HTTPPort)
	require.Equal(t, ":8190", cfg.Addr())
	require.Equal(t, "bridge-worker", cfg.ServiceIdentityPrefix)
	require.Equal(t, time.Hour, cfg.LiveKitTokenTTL)
	require.Equal(t, 64, cfg.RegistryShards)
	require.Equal(t, 10*time.Minute, cfg.SessionStaleTTL)
	require.False(t, cfg.LeaseEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ROOM_BRIDGE_PORT", "9000")
	t.Setenv("SNAPSHOT_DRIVER", " PGX ")
	t.Setenv("DATABASE_URL", "postgres://bridge@localhost:5432/bridge")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ROOM_LEASE_TTL", "45s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr())
	require.Equal(t, SnapshotDriverPgx, cfg.SnapshotDriver)
	require.True(t, cfg.LeaseEnabled())
	require.Equal(t, 45*time.Second, cfg.LeaseTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LiveKitAPIKey:      "key",
			LiveKitAPISecret:   "secret",
			SnapshotDriver:     SnapshotDriverMemory,
			RegistryShards:     1,
			SessionMailboxSize: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing api key", func(c *Config) { c.LiveKitAPIKey = "" }, "LIVEKIT_API_KEY"},
		{"missing api secret", func(c *Config) { c.LiveKitAPISecret = " " }, "LIVEKIT_API_SECRET"},
		{"gorm without dsn", func(c *Config) { c.SnapshotDriver = SnapshotDriverGorm }, "DATABASE_URL"},
		{"unknown driver", func(c *Config) { c.SnapshotDriver = "sqlite" }, "unsupported SNAPSHOT_DRIVER"},
		{"auth without issuer", func(c *Config) { c.AuthEnabled = true }, "ISSUER"},
		{"auth without jwks", func(c *Config) {
			c.AuthEnabled = true
			c.AuthIssuer = "https://kc/realms/jan"
			c.AuthAudience = "room-bridge"
		}, "JWKS_URL"},
		{"no shards", func(c *Config) { c.RegistryShards = 0 }, "REGISTRY_SHARDS"},
		{"no mailbox", func(c *Config) { c.SessionMailboxSize = 0 }, "SESSION_MAILBOX_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
