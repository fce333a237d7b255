// Package logger provides structured logging for the game server.
// Every engine decision that matters to a session should be traceable through this.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides structured logging with context.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a console logger at info level.
func NewLogger() *Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, "info")
}

// New creates a logger writing to w at the given level ("debug", "info", "warn", "error").
// Unknown levels fall back to info.
func New(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return &Logger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that tags every line with key=value.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Debug logs verbose diagnostics.
func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.zl.Error().Msg(msg)
}

// Err logs msg with err attached.
func (l *Logger) Err(err error, msg string) {
	l.zl.Error().Err(err).Msg(msg)
}

// Event logs a specific game event with its actor.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.zl.Info().Str("event", eventType).Str("actor", actorID).Msg(details)
}
