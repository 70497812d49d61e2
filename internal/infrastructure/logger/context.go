package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey contextKey = "logger"
	runKey    contextKey = "run"
)

// RunFields identify one import run in every log entry
type RunFields struct {
	RunID    string
	TenantID string
	Entity   string
	File     string
}

func (f RunFields) zapFields() []zap.Field {
	fields := make([]zap.Field, 0, 4)
	if f.RunID != "" {
		fields = append(fields, zap.String("run_id", f.RunID))
	}
	if f.TenantID != "" {
		fields = append(fields, zap.String("tenant_id", f.TenantID))
	}
	if f.Entity != "" {
		fields = append(fields, zap.String("entity", f.Entity))
	}
	if f.File != "" {
		fields = append(fields, zap.String("file", f.File))
	}
	return fields
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRun merges run identification into the context. Empty values keep
// whatever an outer call already set, so a batch can set the tenant once
// and each file adds its own name.
func WithRun(ctx context.Context, fields RunFields) context.Context {
	current := RunFromContext(ctx)
	if fields.RunID != "" {
		current.RunID = fields.RunID
	}
	if fields.TenantID != "" {
		current.TenantID = fields.TenantID
	}
	if fields.Entity != "" {
		current.Entity = fields.Entity
	}
	if fields.File != "" {
		current.File = fields.File
	}
	return context.WithValue(ctx, runKey, current)
}

// RunFromContext returns the run fields stored in ctx
func RunFromContext(ctx context.Context) RunFields {
	if f, ok := ctx.Value(runKey).(RunFields); ok {
		return f
	}
	return RunFields{}
}

// ContextLogger injects run fields from the context into every entry
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger from the given context.
// Usage: logger.L(ctx).Info("row skipped", zap.Int("line", 12))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

func (cl *ContextLogger) enriched() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	if fields := RunFromContext(cl.ctx).zapFields(); len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}

// With creates a child ContextLogger with additional fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Debug logs a debug level message
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enriched().Debug(msg, fields...)
}

// Info logs an info level message
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enriched().Info(msg, fields...)
}

// Warn logs a warning level message
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enriched().Warn(msg, fields...)
}

// Error logs an error level message
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enriched().Error(msg, fields...)
}

// Zap returns the underlying logger enriched with run fields
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enriched()
}
