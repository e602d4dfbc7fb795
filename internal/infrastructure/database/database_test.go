package database

import (
	"testing"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/janhq/room-bridge/internal/config"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		wantLevel gormlogger.LogLevel
	}{
		{name: "info logs warnings only", logLevel: "info", wantLevel: gormlogger.Warn},
		{name: "debug logs statements", logLevel: "DEBUG", wantLevel: gormlogger.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewConfig(&config.Config{
				LogLevel:          tt.logLevel,
				DatabaseURL:       "postgres://u:p@db:5432/rooms",
				DBMaxIdleConns:    2,
				DBMaxOpenConns:    8,
				DBConnMaxLifetime: time.Minute,
			})
			if got.DSN != "postgres://u:p@db:5432/rooms" || got.MaxIdleConns != 2 || got.MaxOpenConns != 8 || got.ConnMaxLifetime != time.Minute {
				t.Errorf("NewConfig() = %+v", got)
			}
			if got.LogLevel != tt.wantLevel {
				t.Errorf("LogLevel = %v, want %v", got.LogLevel, tt.wantLevel)
			}
		})
	}
}

func TestConnect_EmptyDSN(t *testing.T) {
	if _, err := Connect(Config{}); err == nil {
		t.Fatal("Connect() expected error for empty DSN")
	}
}

func TestEnsureDatabaseExists_SkipsWithoutDatabaseName(t *testing.T) {
	for _, dsn := range []string{
		"host=localhost user=postgres dbname=rooms",
		"postgres://u:p@localhost:5432/",
		"postgres://u:p@localhost:5432/postgres",
	} {
		if err := ensureDatabaseExists(dsn); err != nil {
			t.Errorf("ensureDatabaseExists(%q) error: %v", dsn, err)
		}
	}
}
