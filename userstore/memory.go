package userstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
)

// MemoryStore keeps accounts in process memory. Returned users are copies.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	if err := prepare(u, s.now()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return ErrDuplicateEmail
	}
	if _, ok := s.byID[u.ID]; ok {
		return fmt.Errorf("%w: id %q already exists", ErrInvalidUser, u.ID)
	}

	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ListByRole returns matching users, newest first.
func (s *MemoryStore) ListByRole(_ context.Context, role officeauth.Role) ([]*User, error) {
	s.mu.RLock()
	out := make([]*User, 0)
	for _, u := range s.byID {
		if u.Role == role {
			cp := *u
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) (*User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidUser, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Status = status
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	if hash == "" {
		return fmt.Errorf("%w: password hash required", ErrInvalidUser)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}
