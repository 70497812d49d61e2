package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeLayout is the timestamp layout of both encoders
const DefaultTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Config holds logger configuration. The zero value logs info and above
// to stderr in console format, leaving stdout to run summaries.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeLayout string
}

// New builds the process logger from cfg
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.Sampling = nil
	zc.OutputPaths = []string{outputPath(cfg.Output)}
	zc.ErrorOutputPaths = []string{"stderr"}

	enc := &zc.EncoderConfig
	enc.TimeKey = "time"
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	layout := cfg.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(layout)

	if !strings.EqualFold(cfg.Format, "json") {
		zc.Encoding = "console"
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zc.Build()
}

// ParseLevel converts a string level to zapcore.Level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	level = strings.ToLower(level)
	if level == "warning" {
		level = "warn"
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

func outputPath(output string) string {
	switch strings.ToLower(output) {
	case "", "stderr":
		return "stderr"
	case "stdout":
		return "stdout"
	}
	return output
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync(log *zap.Logger) {
	_ = log.Sync()
}
