// Package logger provides a configured zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with serviceName. An unknown level falls back
// to info; pretty switches to a human-readable console writer.
func New(serviceName string, level string, pretty bool) zerolog.Logger {
	var output io.Writer = os.Stdout
	if pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(output, serviceName, level)
}

func NewWithWriter(output io.Writer, serviceName string, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(output).
		Level(ParseLevel(level)).
		With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

func ParseLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
