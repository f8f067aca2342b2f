// Package logx provides the process-wide structured logger used across
// the indexer and query engine.
package logx

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger with a JSON handler writing to
// os.Stdout. It ensures the logger is initialized only once.
func Init() {
	once.Do(func() {
		defaultLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		defaultLogger.Info().Msg("logger initialized")
	})
}

// Get returns the initialized default logger, initializing it if needed.
func Get() *zerolog.Logger {
	Init()
	return &defaultLogger
}

// WithRequestID returns a logger tagged with a correlation id, one per
// indexPage/searchFor call, so multi-line operations can be traced
// through the logs.
func WithRequestID(id uuid.UUID) zerolog.Logger {
	return Get().With().Str("request_id", id.String()).Logger()
}

// Info logs an informational message using the default logger.
func Info(msg string, fields map[string]any) {
	ev := Get().Info()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, fields map[string]any) {
	ev := Get().Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, fields map[string]any) {
	ev := Get().Error()
	if err != nil {
		ev = ev.AnErr("error", err)
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
