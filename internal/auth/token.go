package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskera.org/internal/ids"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 14 * 24 * time.Hour

	// HS256 keys below 32 bytes weaken the MAC; refuse to start with one.
	minSecretLen = 32

	refreshSecretLen = 32
)

// AccessClaims are the JWT claims embedded into access tokens.
type AccessClaims struct {
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// SystemRoles maps the raw role claims onto the closed SystemRole set,
// dropping anything unknown.
func (c *AccessClaims) SystemRoles() []SystemRole {
	var out []SystemRole
	for _, r := range c.Roles {
		if role, ok := ParseSystemRole(r); ok {
			out = append(out, role)
		}
	}
	return out
}

// TokenService issues and validates signed access tokens and generates the
// opaque refresh credentials that index the RefreshToken store.
type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithAudience overrides the token audience claim.
func WithAudience(audience string) TokenOption {
	return func(s *TokenService) {
		if audience = strings.TrimSpace(audience); audience != "" {
			s.audience = audience
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService. A missing or short signing
// secret is a configuration error, fatal at startup rather than per request.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", minSecretLen)
	}
	s := &TokenService{
		secret:     []byte(secret),
		issuer:     "taskera",
		audience:   "taskera-api",
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccessToken signs an HS256 JWT carrying the user's identity and one
// role claim per system role. Returns the signed token, its jti and expiry.
func (s *TokenService) IssueAccessToken(u *User) (string, string, time.Time, error) {
	if u == nil || strings.TrimSpace(u.ID) == "" {
		return "", "", time.Time{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	jti := uuid.NewString()
	claims := AccessClaims{
		Name:  u.Name,
		Email: u.Email,
		Roles: roleNames(u.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, jti, exp, nil
}

// NewRefreshToken generates an opaque high-entropy refresh credential. The
// wire form is "id.secret"; only the sha256 of the secret is persisted, and
// the row remembers the jti of the access token minted with it.
func (s *TokenService) NewRefreshToken(userID, accessTokenID string) (string, *RefreshToken, error) {
	secretBytes := make([]byte, refreshSecretLen)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, fmt.Errorf("generate refresh secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	now := s.now().UTC()
	rec := &RefreshToken{
		ID:            tokenID,
		UserID:        userID,
		TokenHash:     hashRefreshSecret(secret),
		AccessTokenID: accessTokenID,
		ExpiresAt:     now.Add(s.refreshTTL),
		CreatedAt:     now,
	}
	return tokenID + "." + secret, rec, nil
}

// ParseAndValidate verifies signature, algorithm, issuer, audience and
// expiry. Every failure collapses to ErrInvalidToken; callers treat that as
// "unauthenticated", never as a server error.
func (s *TokenService) ParseAndValidate(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenID extracts the jti without verifying the signature. Best effort for
// introspection and logging; empty string on parse failure.
func (s *TokenService) TokenID(token string) string {
	if claims := parseUnverified(token); claims != nil {
		return claims.ID
	}
	return ""
}

// SubjectID extracts the subject without verifying the signature. Best
// effort for introspection and logging; empty string on parse failure.
func (s *TokenService) SubjectID(token string) string {
	if claims := parseUnverified(token); claims != nil {
		return claims.Subject
	}
	return ""
}

func parseUnverified(token string) *AccessClaims {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, &AccessClaims{})
	if err != nil {
		return nil
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok {
		return nil
	}
	return claims
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func secureCompareHash(expectedHash, secret string) bool {
	actual := hashRefreshSecret(secret)
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
