package userstore

import (
	"context"
	"testing"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateDefaults(t *testing.T) {
	s := NewMemoryStore()
	u := &User{Email: "  Director@Example.COM ", Name: "Dee", PasswordHash: "$argon2id$x"}

	require.NoError(t, s.Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "director@example.com", u.Email)
	assert.Equal(t, officeauth.RoleClient, u.Role)
	assert.Equal(t, StatusPending, u.Status)
	assert.False(t, u.CreatedAt.IsZero())
	assert.False(t, u.CanLogin(), "pending accounts cannot log in")

	got, err := s.FindByEmail(context.Background(), "DIRECTOR@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &User{Email: "a@b.com", PasswordHash: "h"}))
	err := s.Create(ctx, &User{Email: "A@B.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMemoryStore_InvalidInput(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.Create(ctx, nil), ErrInvalidUser)
	assert.ErrorIs(t, s.Create(ctx, &User{PasswordHash: "h"}), ErrInvalidUser)
	assert.ErrorIs(t, s.Create(ctx, &User{Email: "x@y.z"}), ErrInvalidUser)
	assert.ErrorIs(t, s.Create(ctx, &User{Email: "x@y.z", PasswordHash: "h", Role: "OWNER"}), ErrInvalidUser)
	assert.ErrorIs(t, s.Create(ctx, &User{Email: "x@y.z", PasswordHash: "h", Status: "GONE"}), ErrInvalidUser)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u := &User{Email: "c@d.com", PasswordHash: "h"}
	require.NoError(t, s.Create(ctx, u))

	u.Name = "mutated after create"
	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Name)

	got.Status = StatusActive
	again, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}

func TestMemoryStore_ListByRoleNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i, email := range []string{"one@x.io", "two@x.io", "three@x.io"} {
		require.NoError(t, s.Create(ctx, &User{Email: email, PasswordHash: "h", CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, s.Create(ctx, &User{Email: "staff@x.io", PasswordHash: "h", Role: officeauth.RoleAdmin, Status: StatusActive}))

	clients, err := s.ListByRole(ctx, officeauth.RoleClient)
	require.NoError(t, err)
	require.Len(t, clients, 3)
	assert.Equal(t, "three@x.io", clients[0].Email)
	assert.Equal(t, "one@x.io", clients[2].Email)

	admins, err := s.ListByRole(ctx, officeauth.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.True(t, admins[0].CanLogin())
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u := &User{Email: "e@f.com", PasswordHash: "h"}
	require.NoError(t, s.Create(ctx, u))

	updated, err := s.UpdateStatus(ctx, u.ID, StatusActive)
	require.NoError(t, err)
	assert.True(t, updated.CanLogin())

	updated, err = s.UpdateStatus(ctx, u.ID, StatusSuspended)
	require.NoError(t, err)
	assert.False(t, updated.CanLogin())

	_, err = s.UpdateStatus(ctx, "missing", StatusActive)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateStatus(ctx, u.ID, "ARCHIVED")
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestMemoryStore_UpdatePasswordHash(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u := &User{Email: "g@h.com", PasswordHash: "$2a$10$old"}
	require.NoError(t, s.Create(ctx, u))

	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "$argon2id$new"))
	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$new", got.PasswordHash)

	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "missing", "h"), ErrNotFound)
	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, u.ID, ""), ErrInvalidUser)
}

func TestUserIdentity(t *testing.T) {
	u := &User{ID: "u1", Email: "a@b.com", Role: officeauth.RoleSuperAdmin}
	assert.Equal(t, officeauth.Identity{ID: "u1", Email: "a@b.com", Role: officeauth.RoleSuperAdmin}, u.Identity())
}
