package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds the process logger. env "dev" enables debug output;
// format "text" switches from JSON to the human-readable handler.
func New(env, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, env, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, env, format string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}
