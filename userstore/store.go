package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("userstore: user not found")
	// ErrDuplicateEmail is returned by Create for an address already in use.
	ErrDuplicateEmail = errors.New("userstore: email already registered")
	// ErrInvalidUser is returned by Create for incomplete or inconsistent input.
	ErrInvalidUser = errors.New("userstore: invalid user")
)

// Store is the account persistence port used by the HTTP handlers.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	ListByRole(ctx context.Context, role officeauth.Role) ([]*User, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// prepare fills defaults on u and checks it before insertion.
func prepare(u *User, now time.Time) error {
	if u == nil {
		return fmt.Errorf("%w: nil user", ErrInvalidUser)
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Email == "" {
		return fmt.Errorf("%w: email required", ErrInvalidUser)
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("%w: password hash required", ErrInvalidUser)
	}
	if u.Role == "" {
		u.Role = officeauth.RoleClient
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidUser, u.Role)
	}
	if u.Status == "" {
		u.Status = StatusPending
	}
	if !u.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidUser, u.Status)
	}
	if u.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		u.ID = id.String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now.UTC()
	}
	return nil
}
