package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore is a process-local [Store] for tests and single-node setups.
// Get hides expired sessions; Sweep and the optional sweeper remove them.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	byUser   map[string]map[string]struct{}
	now      func() time.Time

	sweepInterval time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// MemoryStoreOption customizes a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithSweepInterval starts a background sweep every d. Non-positive values
// leave sweeping to explicit [MemoryStore.Sweep] calls.
func WithSweepInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.sweepInterval = d
	}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]Session),
		byUser:   make(map[string]map[string]struct{}),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepInterval > 0 {
		s.wg.Add(1)
		go s.runSweeper()
	}
	return s
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session: id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = *sess
	ids, ok := s.byUser[sess.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[sess.UserID] = ids
	}
	ids[sess.ID] = struct{}{}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)
	if ids := s.byUser[sess.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, sess.UserID)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id := range s.byUser[userID] {
		if sess, ok := s.sessions[id]; ok {
			if !sess.Expired(now) {
				removed++
			}
			delete(s.sessions, id)
		}
	}
	delete(s.byUser, userID)
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops every session expired at now, with its index entry, and
// returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if !sess.Expired(now) {
			continue
		}
		delete(s.sessions, id)
		if ids := s.byUser[sess.UserID]; ids != nil {
			delete(ids, id)
			if len(ids) == 0 {
				delete(s.byUser, sess.UserID)
			}
		}
		removed++
	}
	return removed
}

// Close stops the sweeper. The store stays usable.
func (s *MemoryStore) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

func (s *MemoryStore) runSweeper() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(s.now())
		case <-s.done:
			return
		}
	}
}
