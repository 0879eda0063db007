// Package logging builds the logrus loggers used by the CLI and the handler.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Format names accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to out at the named level ("debug", "info",
// "warn", "error"; case-insensitive, empty means info).
func New(level, format string, out io.Writer) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(out)

	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", FormatText:
		logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	case FormatJSON:
		logger.SetFormatter(&log.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.999Z07:00",
			FieldMap: log.FieldMap{
				log.FieldKeyTime: "@timestamp",
			},
		})
	default:
		return nil, fmt.Errorf("unknown log format: %s (use text or json)", format)
	}

	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
