package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another run holds the lock
var ErrLocked = errors.New("an import of this kind is already running for the tenant")

// Locker grants exclusive import runs per tenant and kind
type Locker interface {
	// Acquire takes the lock for ttl. The returned release function frees
	// it; releasing an expired or stolen lock is a no-op.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
	Close() error
}

// LockKey builds the lock key of one tenant and import kind
func LockKey(tenantID uuid.UUID, kind string) string {
	return fmt.Sprintf("import-lock:%s:%s", tenantID, kind)
}

// releaseScript deletes the key only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX, so concurrent importers on
// different hosts exclude each other.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker connects to Redis and checks the connection
func NewRedisLocker(ctx context.Context, opts *redis.Options) (*RedisLocker, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisLocker{client: client}, nil
}

// NewRedisLockerWithClient wraps an existing client
func NewRedisLockerWithClient(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire implements Locker
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, key)
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}

// Close closes the Redis client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

var _ Locker = (*RedisLocker)(nil)
