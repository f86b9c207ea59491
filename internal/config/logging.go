package config

import (
	"io"
	"log/slog"
	"strings"
)

// SlogLevel maps the configured level to a slog.Level, defaulting to info.
func (c LogConf) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the root slog handler. The level is read through lv so
// it can change on reload.
func (c LogConf) NewHandler(w io.Writer, lv *slog.LevelVar) slog.Handler {
	lv.Set(c.SlogLevel())
	opts := &slog.HandlerOptions{Level: lv}
	if c.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
