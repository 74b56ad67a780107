package officeauth

import "strings"

// Role is the coarse authorization level of an account.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// ParseRole maps s (case-insensitive) to a known Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may use the admin console.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) String() string {
	return string(r)
}

// Identity is the authenticated caller of one request. It is built fresh on
// every resolution and never cached.
//
// Role is copied from the credential as-is. Unknown roles survive resolution
// and are rejected by [Authorize].
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// HasRole reports whether the identity's role is one of roles.
func (i *Identity) HasRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
