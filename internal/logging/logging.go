// Package logging builds the process logger. Every logger it returns shares
// one level, so SetLevel takes effect on loggers already handed out.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

// New returns a slog logger writing to w in the given format ("text" or
// "json") at the current shared level.
func New(w io.Writer, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup builds a logger, sets the shared level and installs the logger as
// slog's default.
func Setup(w io.Writer, format, lvl string) (*slog.Logger, error) {
	if err := SetLevel(lvl); err != nil {
		return nil, err
	}
	logger := New(w, format)
	slog.SetDefault(logger)
	return logger, nil
}

// SetLevel changes the shared level. An empty string means info.
func SetLevel(lvl string) error {
	l, err := ParseLevel(lvl)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}

// Level reports the shared level.
func Level() slog.Level {
	return level.Level()
}

// ParseLevel maps debug, info, warn and error (any case) to slog levels.
func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", lvl)
	}
}
