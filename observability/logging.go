package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls the process-wide structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// File enables a size-rotated log sink in addition to stdout when set.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// SetupLogging builds a JSON slog logger and installs it as the default.
func SetupLogging(cfg LogConfig) *slog.Logger {
	var sink io.Writer = os.Stdout
	if strings.TrimSpace(cfg.File) != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		sink = io.MultiWriter(os.Stdout, rotated)
	}
	handler := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
