package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type lease struct {
	token     uint64
	expiresAt time.Time
}

// InMemoryLocker implements Locker inside one process. It only excludes
// runs that share the process, which is enough for a single CLI host.
type InMemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

// NewInMemoryLocker creates an empty in-process locker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// Acquire implements Locker
func (l *InMemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, key)
	}

	l.next++
	token := l.next
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[key]; ok && held.token == token {
			delete(l.leases, key)
		}
		return nil
	}
	return release, nil
}

// Held returns the number of unexpired leases
func (l *InMemoryLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	now := l.now()
	for key, held := range l.leases {
		if now.Before(held.expiresAt) {
			n++
		} else {
			delete(l.leases, key)
		}
	}
	return n
}

// Close implements Locker
func (l *InMemoryLocker) Close() error {
	return nil
}

var _ Locker = (*InMemoryLocker)(nil)
