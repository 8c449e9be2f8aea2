package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func Init() {
	slog.SetDefault(New(os.Stderr, os.Getenv("LOG_LEVEL")))
}

// New builds the JSON logger used across dcc. Level is "debug", "warn",
// "error" or anything else for info.
func New(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
}
