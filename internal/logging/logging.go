package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// parseLevel maps LOG_LEVEL spellings onto slog levels.
func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return slog.LevelDebug - 4, true
	case "dev", "development", "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error", "production", "prod":
		return slog.LevelError, true
	}
	return 0, false
}

// Init installs the client logger. The default level only shows errors so the
// room view stays readable.
func Init() {
	slog.SetDefault(New(os.Stderr, os.Getenv("LOG_LEVEL")))
}

func New(w io.Writer, level string) *slog.Logger {
	l, ok := parseLevel(level)
	if !ok {
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// Relay builds the relay's zerolog logger. Unknown levels fall back to info.
func Relay(w io.Writer, level string) zerolog.Logger {
	zl := zerolog.InfoLevel
	if l, ok := parseLevel(level); ok {
		switch {
		case l < slog.LevelDebug:
			zl = zerolog.TraceLevel
		case l < slog.LevelInfo:
			zl = zerolog.DebugLevel
		case l < slog.LevelWarn:
			zl = zerolog.InfoLevel
		case l < slog.LevelError:
			zl = zerolog.WarnLevel
		default:
			zl = zerolog.ErrorLevel
		}
	}
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(zl).With().Timestamp().Str("service", "relay").Logger()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
