package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockKey(t *testing.T) {
	tenant := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	assert.Equal(t, "import-lock:00000000-0000-0000-0000-000000000001:contacts", LockKey(tenant, "contacts"))
}

func TestInMemoryLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLocker()

	release, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Held())

	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	assert.Zero(t, l.Held())

	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)
}

func TestInMemoryLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewInMemoryLocker()
	l.now = func() time.Time { return now }

	stale, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err, "an expired lease can be taken over")

	require.NoError(t, stale(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLocked, "releasing a stale lease must not free the new holder")

	require.NoError(t, fresh(ctx))
	assert.Zero(t, l.Held())
}

func TestInMemoryLocker_Concurrent(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLocker()

	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Acquire(ctx, "k", time.Minute); err == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
}
