package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the API logger. Non-production environments log at debug level.
func New(environment string) zerolog.Logger {
	level := "info"
	if environment != "production" {
		level = "debug"
	}
	return build(os.Stdout, environment, level)
}

// NewWorker builds the worker logger with an explicit level.
func NewWorker(environment, level string) zerolog.Logger {
	return build(os.Stdout, environment, level)
}

func build(out io.Writer, environment, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    environment == "production",
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("env", environment).
		Logger()

	zerolog.SetGlobalLevel(parseLevel(level))

	return logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
