package logger

import (
	"context"
	"log/slog"
)

// Event writes one structured line: msg followed by key=value pairs in the
// order given. kv alternates keys and values as with slog.
func (l *Logger) Event(level Level, msg string, kv ...any) {
	if l == nil || !l.Enabled(level) {
		return
	}
	Slog(l).Log(context.Background(), loggerLevelToSlogLevel(level), msg, kv...)
}

// Event writes a structured line using the global logger.
func Event(level Level, msg string, kv ...any) {
	Global().Event(level, msg, kv...)
}

// With returns a slog logger that prefixes every line with kv.
func (l *Logger) With(kv ...any) *slog.Logger {
	return Slog(l).With(kv...)
}
