package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is the statement duration reported as slow when the
// configuration does not set one.
const DefaultSlowQuery = 500 * time.Millisecond

// SQLLogger writes gorm statements to zap, tagged with the import run
// found in the context. Record-not-found is never logged since resolvers
// probe for rows on every line, and unique violations drop to debug
// because they end as row skips.
type SQLLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewSQLLogger returns a gorm logger at level. A zero slow disables the
// slow statement warning.
func NewSQLLogger(log *zap.Logger, level gormlogger.LogLevel, slow time.Duration) *SQLLogger {
	return &SQLLogger{log: log.Named("sql"), level: level, slow: slow}
}

// LogMode implements gormlogger.Interface
func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *SQLLogger) forRun(ctx context.Context) *zap.Logger {
	if fields := RunFromContext(ctx).zapFields(); len(fields) > 0 {
		return l.log.With(fields...)
	}
	return l.log
}

func (l *SQLLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	l.forRun(ctx).Sugar().Logf(lvl, msg, data...)
}

// Info implements gormlogger.Interface
func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

// Trace implements gormlogger.Interface
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	statement := func(extra ...zap.Field) []zap.Field {
		sql, rows := fc()
		return append([]zap.Field{
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		}, extra...)
	}

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		if IsUniqueViolation(err) {
			l.forRun(ctx).Debug("Statement hit a unique constraint", statement(zap.Error(err))...)
			return
		}
		l.forRun(ctx).Error("Statement failed", statement(zap.Error(err))...)

	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		l.forRun(ctx).Warn("Slow statement", statement(zap.Duration("threshold", l.slow))...)

	case l.level >= gormlogger.Info:
		l.forRun(ctx).Debug("Statement", statement()...)
	}
}

// IsUniqueViolation reports whether err comes from a unique constraint,
// matching both the postgres and sqlite wording.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}

// ParseSQLLevel maps the log.sql_level setting to a gorm level; debug is
// accepted as an alias of info and anything unknown means warn.
func ParseSQLLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent", "off":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
