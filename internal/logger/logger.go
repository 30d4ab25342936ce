package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup initializes the global zerolog logger writing to stdout.
//   - level: log level string (trace, debug, info, warn, error, fatal, panic)
//   - format: "json" for production, "pretty" for human-readable dev output
func Setup(level, format string) zerolog.Logger {
	return New(os.Stdout, level, format)
}

// New builds a logger on an arbitrary writer. An unknown level falls back to info.
func New(out io.Writer, level, format string) zerolog.Logger {
	writer := out
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Str("service", "assessment-engine").
		Logger()
}
