// Package inflight guards against syncing the same character twice at once.
package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrSyncInProgress is returned when the key is already held.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrGuardFull is returned when a bounded guard holds its maximum of keys.
	ErrGuardFull = errors.New("in-flight guard full")
)

// Guard hands out exclusive holds on keys.
type Guard interface {
	// Acquire takes the hold on key or fails fast with ErrSyncInProgress.
	// The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)

	// Size returns the number of keys currently held.
	Size() int64
}

// inMemoryGuard implements Guard with a map of held keys.
// maxSize <= 0 leaves the number of concurrent holds unbounded.
type inMemoryGuard struct {
	mu      sync.Mutex
	held    map[string]struct{}
	maxSize int
	size    atomic.Int64
}

// NewInMemoryGuard creates a new in-memory guard with configuration options.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{}

	// Apply all options
	for _, opt := range opts {
		opt(g)
	}

	g.held = make(map[string]struct{})
	return g
}

// Acquire records key as held unless it already is.
func (g *inMemoryGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.held[key]; exists {
		return nil, ErrSyncInProgress
	}
	if g.maxSize > 0 && len(g.held) >= g.maxSize {
		return nil, ErrGuardFull
	}
	g.held[key] = struct{}{}
	g.size.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() { g.release(key) })
	}, nil
}

func (g *inMemoryGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.held[key]; exists {
		delete(g.held, key)
		g.size.Add(-1)
	}
}

// Size returns the current number of held keys.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
