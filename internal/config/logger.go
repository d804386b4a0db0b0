package config

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the JSON slog logger at the configured level. When
// LogFile is set, records go to out and to a size-rotated file; the
// returned closer releases that file and is a no-op otherwise.
func NewLogger(cfg *Config, out io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(cfg.LogLevel),
	})), closer
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
