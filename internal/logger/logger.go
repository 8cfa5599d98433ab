// Package logger wraps zerolog with the field helpers the rest of the
// module uses to tag log lines by worker, session, and execution.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

// Init configures the global logger. level is a zerolog level name
// ("debug", "info", "warn", "error"); unrecognized values fall back to
// info. pretty switches to a human-readable console writer for local
// runs instead of the default JSON output.
func Init(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var output io.Writer = os.Stdout
	if pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	log = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Get returns the global logger.
func Get() *zerolog.Logger {
	return &log
}

// WithComponent scopes a logger to one subsystem (e.g. "pool", "fabric", "dispatch").
func WithComponent(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithWorker scopes a logger to a local pool worker slot.
func WithWorker(workerID string) zerolog.Logger {
	return log.With().Str("worker_id", workerID).Logger()
}

// WithSession scopes a logger to a remote worker's fabric session.
func WithSession(sessionID string) zerolog.Logger {
	return log.With().Str("session_id", sessionID).Logger()
}

// WithExecution scopes a logger to one dispatched task execution.
func WithExecution(taskID, executionID string) zerolog.Logger {
	return log.With().Str("task_id", taskID).Str("execution_id", executionID).Logger()
}

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }
func Fatal() *zerolog.Event { return log.Fatal() }
