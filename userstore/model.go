package userstore

import (
	"strings"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
)

// Status is the approval state of an account.
type Status string

const (
	// StatusPending is a freshly registered client awaiting staff review.
	StatusPending Status = "PENDING"
	// StatusActive accounts may log in.
	StatusActive Status = "ACTIVE"
	// StatusSuspended accounts are blocked until reactivated.
	StatusSuspended Status = "SUSPENDED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// User is one account row. PasswordHash is never serialized.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	PasswordHash string          `json:"-"`
	Role         officeauth.Role `json:"role"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// CanLogin reports whether the account is allowed to authenticate.
func (u *User) CanLogin() bool {
	return u != nil && u.Status == StatusActive
}

// Identity returns the identity carried by sessions and tokens for u.
func (u *User) Identity() officeauth.Identity {
	return officeauth.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
