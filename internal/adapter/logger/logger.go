package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type LoggerAdapter struct {
	logger *slog.Logger
}

// NewLoggerAdapter writes JSON logs to stdout. Debug output is dropped in
// production unless LOG_LEVEL asks for it.
func NewLoggerAdapter(env, level string) *LoggerAdapter {
	return newLoggerAdapter(os.Stdout, env, level)
}

func newLoggerAdapter(w io.Writer, env, level string) *LoggerAdapter {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     levelFor(env, level),
		AddSource: env != "production",
	})
	return &LoggerAdapter{logger: slog.New(handler)}
}

func levelFor(env, level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func attrs(fields map[string]interface{}) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

func (l *LoggerAdapter) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, attrs(fields)...)
}

func (l *LoggerAdapter) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, attrs(fields)...)
}

func (l *LoggerAdapter) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, attrs(fields)...)
}

func (l *LoggerAdapter) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, attrs(fields)...)
}
