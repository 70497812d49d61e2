package cache

import (
	"context"

	"github.com/erp/importer/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LockerFactoryOption is a functional option for NewLocker
type LockerFactoryOption func(*lockerFactory)

type lockerFactory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger used to report the chosen lock backend
func WithLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *lockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-process lock. Default is true.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *lockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLocker returns a Redis locker when Redis is configured and an
// in-process locker otherwise.
func NewLocker(ctx context.Context, cfg config.RedisConfig, opts ...LockerFactoryOption) (Locker, error) {
	f := &lockerFactory{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}

	if !cfg.Enabled() {
		f.logger.Debug("Redis not configured, using in-process import lock")
		return NewInMemoryLocker(), nil
	}

	locker, err := NewRedisLocker(ctx, &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, err
		}
		f.logger.Warn("Redis unavailable, falling back to in-process import lock",
			zap.String("addr", cfg.Addr()),
			zap.Error(err))
		return NewInMemoryLocker(), nil
	}

	f.logger.Debug("Using Redis import lock", zap.String("addr", cfg.Addr()))
	return locker, nil
}
