package auth

import (
	"strings"
	"time"
)

// SystemRole is the coarsest authorization axis, carried as a claim on the
// access token. It is asserted at issuance time, not re-derived per request.
type SystemRole string

const (
	RoleAdmin     SystemRole = "admin"
	RoleManager   SystemRole = "manager"
	RoleDeveloper SystemRole = "developer"
)

// ParseSystemRole normalizes a role name; the second return is false for
// names outside the closed enumeration.
func ParseSystemRole(s string) (SystemRole, bool) {
	switch SystemRole(strings.TrimSpace(strings.ToLower(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleManager:
		return RoleManager, true
	case RoleDeveloper:
		return RoleDeveloper, true
	default:
		return "", false
	}
}

// User is the account record the authentication subsystem reads and mutates.
// The lockout fields obey one invariant: LockoutExpiresAt set implies
// LockedOutAt set and FailedLoginAttempts at or above the guard threshold.
type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	Active              bool
	FailedLoginAttempts int
	LockedOutAt         *time.Time
	LockoutExpiresAt    *time.Time
	Roles               []SystemRole
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasRole reports whether the user holds the given system role.
func (u *User) HasRole(role SystemRole) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RefreshToken is the persisted half of an opaque refresh credential. Only
// the sha256 of the client-held secret is stored. Revocation is permanent:
// a revoked row is never reactivated or reissued.
type RefreshToken struct {
	ID            string
	UserID        string
	TokenHash     string
	AccessTokenID string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	Revoked       bool
	RevokedAt     *time.Time
}

// UserInfo is the projection of a user returned alongside freshly issued
// tokens.
type UserInfo struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// SessionResult is the terminal success outcome of the login and refresh
// flows.
type SessionResult struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	User             UserInfo  `json:"user"`
}

func roleNames(roles []SystemRole) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
