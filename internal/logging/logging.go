package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level  string // debug|info|warn|error
	Format string // text|json
	// File, when set, receives the log stream instead of Out.
	File string
	Out  io.Writer
}

// New builds the process logger. The returned close func releases the log
// file, if one was opened.
func New(cfg Config) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	closer := func() error { return nil }
	if p := strings.TrimSpace(cfg.File); p != "" {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", p, err)
		}
		out = f
		closer = f.Close
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("logging: unknown format %q (expected text|json)", cfg.Format)
	}
	return slog.New(h), closer, nil
}

// Discard returns a logger that drops everything. The TUI uses it when no log
// file is configured so output never lands on the terminal.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}
