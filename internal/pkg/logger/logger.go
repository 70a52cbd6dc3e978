// Package logger wraps zerolog behind a small package-level API so callers
// never touch the global logger directly.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger zerolog.Logger

// LogLevel names a verbosity threshold. The zero value falls back to info.
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

// Config controls how log lines are rendered.
type Config struct {
	Level LogLevel
	// Pretty switches from JSON lines to the human console writer.
	Pretty bool
	// Output defaults to os.Stdout when nil.
	Output io.Writer
}

// Configure rebuilds the package logger and replaces zerolog's global logger
// so third-party code logging through rs/zerolog/log lands in the same place.
func Configure(config Config) {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(string(config.Level)); err == nil && config.Level != "" {
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer = out
	if config.Pretty {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	defaultLogger = zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = defaultLogger
}

// Debug starts a debug-level event.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts an info-level event.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a warn-level event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts an error-level event.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Fatal starts a fatal-level event; zerolog exits the process after Msg.
func Fatal() *zerolog.Event {
	return defaultLogger.Fatal()
}

func init() {
	// JSON until Configure runs with the loaded configuration.
	Configure(Config{Level: InfoLevel})
}
