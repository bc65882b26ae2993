// Package logger configures the process-wide zerolog logger and hands out
// component- and request-scoped child loggers.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig selects level, format, and destination for the global logger.
type LogConfig struct {
	Level      string // zerolog level name, "trace" through "panic"
	Format     string // "json" or "console"
	TimeFormat string // timestamp layout, RFC3339 when unset
	Output     string // "stdout", "stderr", or a file path
}

// DefaultConfig returns the configuration used before config loading has
// succeeded. Logs go to stderr so result envelopes on stdout stay
// machine-readable.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
	}
}

// Setup installs the configured logger as the zerolog global.
func Setup(config LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	out, err := openOutput(config.Output)
	if err != nil {
		return err
	}
	if strings.ToLower(config.Format) != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: config.TimeFormat,
			NoColor:    false,
		}
	}

	log.Logger = zerolog.New(out).With().
		Timestamp().
		Caller().
		Logger()

	return nil
}

// openOutput resolves the configured destination. Anything that is not a
// known stream name is treated as a file path and appended to.
func openOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	}
}

// WithComponent returns a child logger tagged with a component field.
// Every package takes its logger from here so log lines are filterable by
// pipeline stage.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithRequestID returns a child logger tagged with a request ID field.
func WithRequestID(requestID string) zerolog.Logger {
	return log.Logger.With().Str("request_id", requestID).Logger()
}

// WithContext returns the logger attached to ctx by the request middleware,
// or the global logger outside a request.
func WithContext(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}
