// Package logger provides the structured logger used across every bounded
// context. It wraps log/slog behind a small interface so call sites never
// depend on the concrete backend, matching the context-first signature used
// throughout business/* (Info/Warn/Error/Debug(ctx, msg, kv...)).
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Level mirrors slog's levels under names already used at every call site.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoggerInterface is the contract every business/* package depends on.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kvPairs ...any)
	Info(ctx context.Context, msg string, kvPairs ...any)
	Warn(ctx context.Context, msg string, kvPairs ...any)
	Error(ctx context.Context, msg string, kvPairs ...any)
	With(kvPairs ...any) LoggerInterface
}

// Logger is the slog-backed implementation.
type Logger struct {
	slog *slog.Logger
}

// New creates a Logger writing JSON lines to w at the given level, with a
// "service" attribute and any extra static attrs attached to every record.
func New(w io.Writer, level Level, serviceName string, attrs map[string]any) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	l := slog.New(h).With("service", serviceName)
	for k, v := range attrs {
		l = l.With(k, v)
	}
	return &Logger{slog: l}
}

func (l *Logger) Debug(ctx context.Context, msg string, kvPairs ...any) {
	l.slog.DebugContext(ctx, msg, kvPairs...)
}

func (l *Logger) Info(ctx context.Context, msg string, kvPairs ...any) {
	l.slog.InfoContext(ctx, msg, kvPairs...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kvPairs ...any) {
	l.slog.WarnContext(ctx, msg, kvPairs...)
}

func (l *Logger) Error(ctx context.Context, msg string, kvPairs ...any) {
	l.slog.ErrorContext(ctx, msg, kvPairs...)
}

// With returns a logger that prepends kvPairs to every subsequent record.
func (l *Logger) With(kvPairs ...any) LoggerInterface {
	return &Logger{slog: l.slog.With(kvPairs...)}
}
