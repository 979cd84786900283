package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tabeth/concreteoci/config"
)

// newLogger builds the process logger. format is "text" or "json"; level may be
// changed later while the logger is in use.
func newLogger(w io.Writer, level *slog.LevelVar, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
	return slog.New(h).With("service", "concreteoci"), nil
}

func setLevel(lv *slog.LevelVar, level string) error {
	switch strings.ToLower(level) {
	case "debug":
		lv.Set(slog.LevelDebug)
	case "", "info":
		lv.Set(slog.LevelInfo)
	case "warn", "warning":
		lv.Set(slog.LevelWarn)
	case "error":
		lv.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}
	return nil
}

// watchConfig applies log level changes made to the config file without a restart.
// Other settings are only read at startup.
func watchConfig(path string, level *slog.LevelVar, logger *slog.Logger) (*config.Watcher, error) {
	w, err := config.NewWatcher(path)
	if err != nil {
		return nil, err
	}
	w.OnChange = func(cfg *config.Config) {
		if err := setLevel(level, cfg.LogLevel); err != nil {
			logger.Warn("ignoring config change", "error", err)
			return
		}
		logger.Info("log level updated", "level", cfg.LogLevel)
	}
	w.OnError = func(err error) {
		logger.Warn("config reload failed", "error", err)
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
