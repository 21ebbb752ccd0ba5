package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Combine-Capital/logtable/pkg/config"
)

// NewZerolog creates the self-log logger from the provided configuration.
// It configures the log level, output format (JSON/console), and output destination.
func NewZerolog(cfg config.LogConfig) zerolog.Logger {
	return NewZerologTo(writerFor(cfg.Output), cfg)
}

// NewZerologTo is NewZerolog with an explicit destination.
func NewZerologTo(w io.Writer, cfg config.LogConfig) zerolog.Logger {
	var logger zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05"})
	} else {
		logger = zerolog.New(w)
	}

	return logger.With().Timestamp().Logger().Level(parseZerologLevel(cfg.Level))
}

func writerFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

// parseZerologLevel converts a string log level to zerolog.Level.
func parseZerologLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace", "verbose":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "information":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
