// Package observability carries structured logging context through outputkeeper operations.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/outputkeeper/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	SessionID  string
	Target     string
	OutputPath string
	Stage      string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithSessionID adds the build session ID to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	lc := extractLogContext(ctx)
	lc.SessionID = id
	return context.WithValue(ctx, logContextKey, lc)
}

// WithTarget adds a build target name to the context.
func WithTarget(ctx context.Context, name string) context.Context {
	lc := extractLogContext(ctx)
	lc.Target = name
	return context.WithValue(ctx, logContextKey, lc)
}

// WithOutputPath adds the canonical output path to the context.
func WithOutputPath(ctx context.Context, path string) context.Context {
	lc := extractLogContext(ctx)
	lc.OutputPath = path
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a stage name (backup, clean, prune) to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := make([]slog.Attr, 0, 4)
	if lc.SessionID != "" {
		attrs = append(attrs, logfields.SessionID(lc.SessionID))
	}
	if lc.Target != "" {
		attrs = append(attrs, logfields.Target(lc.Target))
	}
	if lc.OutputPath != "" {
		attrs = append(attrs, logfields.OutputPath(lc.OutputPath))
	}
	if lc.Stage != "" {
		attrs = append(attrs, logfields.Stage(lc.Stage))
	}
	return attrs
}

func logContext(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	all := append(getLogAttrs(ctx), attrs...)
	slog.LogAttrs(ctx, level, msg, all...)
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelInfo, msg, attrs)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelWarn, msg, attrs)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelError, msg, attrs)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelDebug, msg, attrs)
}
