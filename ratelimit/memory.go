package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

type entry struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// MemoryLimiter is a process-local fixed-window limiter.
//
// Keys are spread over a fixed set of shards, each guarded by its own mutex,
// so unrelated keys do not contend. The background sweeper takes the same
// shard locks as Check and therefore never observes a half-updated entry.
type MemoryLimiter struct {
	shards        [shardCount]shard
	now           func() time.Time
	sweepInterval time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// MemoryOption customizes a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock replaces time.Now. Intended for tests that advance time manually.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSweepInterval sets the sweep period. A non-positive interval disables the
// background sweeper; Sweep can still be called directly.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(l *MemoryLimiter) {
		l.sweepInterval = d
	}
}

// NewMemoryLimiter creates a limiter and starts its sweeper.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		done:          make(chan struct{}),
	}
	for i := range l.shards {
		l.shards[i].entries = make(map[string]*entry)
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.sweepInterval > 0 {
		l.wg.Add(1)
		go l.runSweeper()
	}

	return l
}

// Check implements Limiter. It never returns a backend error.
func (l *MemoryLimiter) Check(_ context.Context, key string, opts Options) (Result, error) {
	if key == "" {
		return Result{}, ErrEmptyKey
	}
	opts, err := opts.Normalize()
	if err != nil {
		return Result{}, err
	}
	if l.closed.Load() {
		return Result{}, ErrClosed
	}

	now := l.now()
	s := l.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(opts.Window)}
		s.entries[key] = e
		return Result{
			Success:   true,
			Remaining: opts.MaxRequests - 1,
			Limit:     opts.MaxRequests,
			ResetAt:   e.resetAt,
		}, nil
	}

	if e.count >= opts.MaxRequests {
		return Result{
			Success:   false,
			Remaining: 0,
			Limit:     opts.MaxRequests,
			ResetAt:   e.resetAt,
		}, nil
	}

	e.count++
	return Result{
		Success:   true,
		Remaining: opts.MaxRequests - e.count,
		Limit:     opts.MaxRequests,
		ResetAt:   e.resetAt,
	}, nil
}

// Sweep removes every entry whose window ended at or before now and returns how
// many were dropped.
func (l *MemoryLimiter) Sweep(now time.Time) int {
	removed := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for key, e := range s.entries {
			if !now.Before(e.resetAt) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Close stops the sweeper. Subsequent Check calls return ErrClosed.
func (l *MemoryLimiter) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
		l.wg.Wait()
	})
}

func (l *MemoryLimiter) runSweeper() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep(l.now())
		case <-l.done:
			return
		}
	}
}

func (l *MemoryLimiter) shardFor(key string) *shard {
	return &l.shards[xxhash.Sum64String(key)%shardCount]
}
