package logger

import (
	"io"
	"log/slog"
	"strings"
)

const (
	FormatPretty = "pretty"
	FormatText   = "text"
	FormatJSON   = "json"
)

// ParseLevel maps LOG_LEVEL values onto slog levels. Unknown values fall back
// to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts))
	case FormatText:
		return slog.New(slog.NewTextHandler(w, opts))
	default:
		return slog.New(NewPrettyHandler(w, opts))
	}
}
