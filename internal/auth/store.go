package auth

import (
	"context"
	"time"
)

// UserStore describes the persistence operations the authentication flows
// require from the user record.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByEmail loads the user with role assignments resolved. The email
	// is expected to be normalized by the caller.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// UpdateLockout persists the failed-attempt counter and both lockout
	// timestamps. It is written on every failed attempt, independent of the
	// rest of the login flow.
	UpdateLockout(ctx context.Context, u *User) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// RefreshTokenStore manages the refresh-token lifecycle.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)
	// Revoke flips the revoked flag with a compare-and-swap on the
	// unrevoked state. ErrNotFound is returned when the row is missing or
	// already revoked, so two concurrent rotations of the same token cannot
	// both succeed.
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error
}
