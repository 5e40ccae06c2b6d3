package logging

import (
	"hotelscore/internal/configuration"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel converts a configured level name into a slog.Level.
// Unknown names fall back to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup настраивает глобальный логгер slog с JSON-выводом в os.Stdout.
// Если задан cfg.File, записи дублируются в файл с ротацией через lumberjack.
// Возвращает io.Closer, который нужно закрыть при завершении приложения.
func Setup(cfg configuration.LoggerConfig) io.Closer {
	logger, closer := New(os.Stdout, cfg)
	slog.SetDefault(logger)
	return closer
}

// New builds the logger described by cfg on top of stdout without touching
// the default logger.
func New(stdout io.Writer, cfg configuration.LoggerConfig) (*slog.Logger, io.Closer) {
	var out io.Writer = stdout
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, file)
		closer = file
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	return slog.New(handler), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
