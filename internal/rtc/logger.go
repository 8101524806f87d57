package rtc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pion/logging"
)

// levelTrace sits below slog.LevelDebug; pion is very chatty at trace.
const levelTrace = slog.LevelDebug - 4

// loggerFactory routes pion's internal logging into slog, one logger per scope.
type loggerFactory struct {
	log *slog.Logger
}

func newLoggerFactory(log *slog.Logger) logging.LoggerFactory {
	return &loggerFactory{log: log}
}

func (f *loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &scopedLogger{log: f.log.With("pion", scope)}
}

type scopedLogger struct {
	log *slog.Logger
}

func (l *scopedLogger) logf(level slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !l.log.Enabled(ctx, level) {
		return
	}
	l.log.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *scopedLogger) Trace(msg string)                  { l.logf(levelTrace, "%s", msg) }
func (l *scopedLogger) Tracef(format string, args ...any) { l.logf(levelTrace, format, args...) }
func (l *scopedLogger) Debug(msg string)                  { l.logf(slog.LevelDebug, "%s", msg) }
func (l *scopedLogger) Debugf(format string, args ...any) { l.logf(slog.LevelDebug, format, args...) }
func (l *scopedLogger) Info(msg string)                   { l.logf(slog.LevelInfo, "%s", msg) }
func (l *scopedLogger) Infof(format string, args ...any)  { l.logf(slog.LevelInfo, format, args...) }
func (l *scopedLogger) Warn(msg string)                   { l.logf(slog.LevelWarn, "%s", msg) }
func (l *scopedLogger) Warnf(format string, args ...any)  { l.logf(slog.LevelWarn, format, args...) }
func (l *scopedLogger) Error(msg string)                  { l.logf(slog.LevelError, "%s", msg) }
func (l *scopedLogger) Errorf(format string, args ...any) { l.logf(slog.LevelError, format, args...) }
