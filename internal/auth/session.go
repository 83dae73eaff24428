package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskera.org/internal/obs"
)

// SessionService orchestrates the credential verifier, the lockout guard,
// the token service and the refresh-token store to implement the login,
// refresh and logout flows.
type SessionService struct {
	users  UserStore
	tokens RefreshTokenStore
	hasher Hasher
	guard  LockoutGuard
	issuer *TokenService
	now    func() time.Time
}

// SessionOption configures SessionService behavior.
type SessionOption func(*SessionService)

// WithSessionClock overrides the time source (useful for tests).
func WithSessionClock(fn func() time.Time) SessionOption {
	return func(s *SessionService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSessionService constructs a SessionService.
func NewSessionService(users UserStore, tokens RefreshTokenStore, hasher Hasher, guard LockoutGuard, issuer *TokenService, opts ...SessionOption) (*SessionService, error) {
	if users == nil || tokens == nil || issuer == nil {
		return nil, errors.New("auth: session service requires user store, token store and token service")
	}
	s := &SessionService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		guard:  guard,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login runs one login attempt to a terminal outcome. Failure outcomes are
// typed sentinels so callers can answer precisely without leaking which
// accounts exist: malformed emails, unknown emails and wrong passwords all
// surface as ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	email, ok := normalizeEmail(email)
	if !ok || password == "" {
		// Malformed input is rejected before any repository lookup.
		obs.ObserveLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.ObserveLogin("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		obs.ObserveLogin("account_inactive")
		return nil, ErrAccountInactive
	}

	now := s.now().UTC()
	if s.guard.IsLockedOut(user, now) {
		obs.ObserveLogin("account_locked")
		return nil, ErrAccountLocked
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		locked := s.guard.RecordFailure(user, now)
		// The counter is persisted even though the attempt failed; a failed
		// login must not be a no-op.
		if err := s.users.UpdateLockout(ctx, user); err != nil {
			obs.LogRequestError("lockout.persist", err)
		}
		if locked {
			obs.ObserveLockout()
		}
		obs.ObserveLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	s.guard.RecordSuccess(user)
	if err := s.users.UpdateLockout(ctx, user); err != nil {
		return nil, err
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		if newHash, err := s.hasher.Hash(password); err == nil {
			if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
				obs.LogRequestError("rehash.persist", err)
			}
		}
	}

	result, err := s.mintSession(ctx, user)
	if err != nil {
		return nil, err
	}
	obs.ObserveLogin("success")
	return result, nil
}

// Refresh rotates a refresh token: the presented token is revoked
// unconditionally before a new pair is issued, so a rotated token can never
// be replayed, with no grace window.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*SessionResult, error) {
	tokenID, secret, err := splitRefreshToken(refreshToken)
	if err != nil {
		obs.ObserveRotation("invalid_token")
		return nil, ErrInvalidToken
	}

	rec, err := s.tokens.Find(ctx, tokenID)
	if err != nil {
		obs.ObserveRotation("invalid_token")
		return nil, ErrInvalidToken
	}
	now := s.now().UTC()
	if rec.Revoked || now.After(rec.ExpiresAt) {
		obs.ObserveRotation("invalid_token")
		return nil, ErrInvalidToken
	}
	if !secureCompareHash(rec.TokenHash, secret) {
		// Wrong secret against a live row smells like a guessed id; burn the
		// row rather than leave it usable.
		_ = s.tokens.Revoke(ctx, rec.ID, now)
		obs.ObserveRotation("invalid_token")
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil || !user.Active {
		obs.ObserveRotation("invalid_token")
		return nil, ErrInvalidToken
	}

	// Compare-and-swap on the revoked flag: when two refreshes race on the
	// same token, exactly one revocation succeeds.
	if err := s.tokens.Revoke(ctx, rec.ID, now); err != nil {
		obs.ObserveRotation("invalid_token")
		return nil, ErrInvalidToken
	}

	result, err := s.mintSession(ctx, user)
	if err != nil {
		return nil, err
	}
	obs.ObserveRotation("success")
	return result, nil
}

// Logout revokes the presented refresh token. Revoking an already revoked
// or unknown token is not an error.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, _, err := splitRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.tokens.Revoke(ctx, tokenID, s.now().UTC()); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *SessionService) mintSession(ctx context.Context, user *User) (*SessionResult, error) {
	access, jti, accessExp, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, rec, err := s.issuer.NewRefreshToken(user.ID, jti)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return nil, err
	}
	return &SessionResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: rec.ExpiresAt,
		User: UserInfo{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Roles: roleNames(user.Roles),
		},
	}, nil
}

// normalizeEmail trims, lower-cases and shape-checks a submitted email. The
// check is deliberately loose; the authoritative validation happened at
// registration time.
func normalizeEmail(email string) (string, bool) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || strings.ContainsAny(email, " \t") {
		return "", false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	if strings.Count(email, "@") != 1 {
		return "", false
	}
	return email, true
}
