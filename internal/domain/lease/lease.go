// Package lease hands out exclusive, in-process leases keyed by event id.
//
// An allocation pass must not run concurrently with another pass over the
// same event; holders acquire the event's lease before reading the snapshot
// and release it after the commit.
package lease

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Leaser grants at most one holder per key.
type Leaser interface {
	// TryAcquire takes the lease for key. It returns false without blocking
	// when the key is already held or the leaser is at capacity.
	TryAcquire(ctx context.Context, key string) bool

	// Release gives up the lease for key. Releasing a free key is a no-op.
	Release(ctx context.Context, key string)

	// Held reports whether key currently has a holder.
	Held(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryLeaser implements Leaser with a mutex-guarded map.
// maxHeld <= 0 means unbounded.
type inMemoryLeaser struct {
	mu      sync.Mutex
	held    map[string]time.Time // key -> acquired at
	maxHeld int
	size    atomic.Int64
	now     func() time.Time
}

// NewInMemoryLeaser creates a new in-memory leaser with configuration options.
func NewInMemoryLeaser(opts ...Option) Leaser {
	l := &inMemoryLeaser{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *inMemoryLeaser) TryAcquire(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return false
	}
	if l.maxHeld > 0 && len(l.held) >= l.maxHeld {
		return false
	}
	l.held[key] = l.now()
	l.size.Add(1)
	return true
}

func (l *inMemoryLeaser) Release(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		delete(l.held, key)
		l.size.Add(-1)
	}
}

func (l *inMemoryLeaser) Held(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

// Size returns the number of leases currently held.
func (l *inMemoryLeaser) Size() int64 {
	return l.size.Load()
}
