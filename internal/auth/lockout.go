package auth

import "time"

const (
	defaultLockoutThreshold = 5
	defaultLockoutDuration  = 15 * time.Minute
)

// LockoutGuard is the state machine over the user record that defends
// against brute-force login. States are Active and LockedOut; the transition
// back to Active is implicit, evaluated against the expiry timestamp on each
// attempt. The guard mutates the in-memory record only; callers persist.
type LockoutGuard struct {
	threshold int
	duration  time.Duration
}

// NewLockoutGuard constructs a guard. Non-positive arguments fall back to
// the defaults (5 attempts, 15 minutes).
func NewLockoutGuard(threshold int, duration time.Duration) LockoutGuard {
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}
	if duration <= 0 {
		duration = defaultLockoutDuration
	}
	return LockoutGuard{threshold: threshold, duration: duration}
}

// IsLockedOut reports whether the account is locked at the given instant.
func (g LockoutGuard) IsLockedOut(u *User, now time.Time) bool {
	return u.LockoutExpiresAt != nil && now.Before(*u.LockoutExpiresAt)
}

// RecordFailure registers one failed login attempt. Below the threshold it
// only increments the counter; the attempt that reaches the threshold stamps
// the lockout window. Returns true when the account transitioned into the
// locked-out state on this call.
func (g LockoutGuard) RecordFailure(u *User, now time.Time) bool {
	if g.IsLockedOut(u, now) {
		return false
	}
	if u.LockoutExpiresAt != nil {
		// A previous lockout expired without a successful login in between;
		// the new failure starts a fresh counting window.
		u.FailedLoginAttempts = 0
		u.LockedOutAt = nil
		u.LockoutExpiresAt = nil
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts < g.threshold {
		return false
	}
	lockedAt := now
	expiresAt := now.Add(g.duration)
	u.LockedOutAt = &lockedAt
	u.LockoutExpiresAt = &expiresAt
	return true
}

// RecordSuccess clears all lockout state. Successful authentication is the
// only path that clears the window before it expires on its own.
func (g LockoutGuard) RecordSuccess(u *User) {
	u.FailedLoginAttempts = 0
	u.LockedOutAt = nil
	u.LockoutExpiresAt = nil
}
