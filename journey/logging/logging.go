// Package logging builds the slog loggers used by the journey binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// New returns a slog.Logger writing to w through a charmbracelet/log handler.
// level is debug|info|warn|error; format is text|json|logfmt. Empty values mean info and text.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl := charmlog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := charmlog.ParseLevel(strings.TrimSpace(level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}

	var formatter charmlog.Formatter
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		formatter = charmlog.TextFormatter
	case "json":
		formatter = charmlog.JSONFormatter
	case "logfmt":
		formatter = charmlog.LogfmtFormatter
	default:
		return nil, fmt.Errorf("log format %q: want text, json or logfmt", format)
	}

	h := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return slog.New(h), nil
}
