// Package logger builds the *slog.Logger shared by the proxy.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

type config struct {
	level  slog.Level
	format string
	writer io.Writer
	source bool
}

// New returns a logger configured by opts. Defaults to info level text
// output on os.Stderr.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatText,
		writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch cfg.format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(cfg.writer, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.source,
		}))
	case FormatPretty:
		return slog.New(charmlog.NewWithOptions(cfg.writer, charmlog.Options{
			Level:           charmlog.Level(cfg.level),
			ReportTimestamp: true,
			ReportCaller:    cfg.source,
		}))
	default:
		return slog.New(slog.NewTextHandler(cfg.writer, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.source,
		}))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a config level name onto a slog.Level. Unknown names map
// to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
