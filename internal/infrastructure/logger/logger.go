package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/config"
)

// New creates a zerolog.Logger configured for the bridge service.
func New(cfg *config.Config) zerolog.Logger {
	return newWithWriter(cfg, os.Stdout)
}

func newWithWriter(cfg *config.Config, out io.Writer) zerolog.Logger {
	var w io.Writer = out
	if !strings.EqualFold(cfg.LogFormat, "json") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Logger().
		Level(parseLevel(cfg.LogLevel))
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
