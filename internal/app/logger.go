package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process logger: JSON when LOG_FORMAT=json, text
// otherwise, at the LOG_LEVEL threshold.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: logLevel(cfg)}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(handler)
	if cfg != nil && cfg.AppEnv != "" {
		logger = logger.With(slog.String("env", cfg.AppEnv))
	}
	return logger
}

// logLevel parses LOG_LEVEL (debug, info, warn, error, or offsets such as
// "info+2"); anything unparsable falls back to info.
func logLevel(cfg *Config) slog.Level {
	var level slog.Level
	if cfg == nil || level.UnmarshalText([]byte(cfg.LogLevel)) != nil {
		return slog.LevelInfo
	}
	return level
}
