package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testTokenService(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestNewTokenServiceRejectsWeakSecret(t *testing.T) {
	if _, err := NewTokenService(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := testTokenService(t)
	u := &User{
		ID:    "user-1",
		Name:  "Dana",
		Email: "dana@example.com",
		Roles: []SystemRole{RoleManager, RoleDeveloper},
	}

	signed, jti, exp, err := svc.IssueAccessToken(u)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if jti == "" {
		t.Fatal("expected non-empty jti")
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry not in the future: %v", exp)
	}

	claims, err := svc.ParseAndValidate(signed)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Email != "dana@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.ID != jti {
		t.Fatalf("jti mismatch: %q != %q", claims.ID, jti)
	}
	roles := claims.SystemRoles()
	if len(roles) != 2 || roles[0] != RoleManager || roles[1] != RoleDeveloper {
		t.Fatalf("roles = %v", roles)
	}
}

func TestIssueAccessTokenRequiresUser(t *testing.T) {
	svc := testTokenService(t)
	if _, _, _, err := svc.IssueAccessToken(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, _, err := svc.IssueAccessToken(&User{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseAndValidateExpiry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	svc := testTokenService(t,
		WithAccessTTL(10*time.Minute),
		WithTokenClock(func() time.Time { return current }),
	)

	signed, _, _, err := svc.IssueAccessToken(&User{ID: "user-1"})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := svc.ParseAndValidate(signed); err != nil {
		t.Fatalf("token should be valid before expiry: %v", err)
	}

	current = base.Add(11 * time.Minute)
	if _, err := svc.ParseAndValidate(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestParseAndValidateRejections(t *testing.T) {
	svc := testTokenService(t)
	signed, _, _, err := svc.IssueAccessToken(&User{ID: "user-1"})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	other, err := NewTokenService(strings.Repeat("x", minSecretLen))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	foreign, _, _, err := other.IssueAccessToken(&User{ID: "user-1"})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	wrongIssuer := testTokenService(t, WithIssuer("someone-else"))
	misissued, _, _, err := wrongIssuer.IssueAccessToken(&User{ID: "user-1"})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"tampered":       signed + "x",
		"wrong key":      foreign,
		"wrong issuer":   misissued,
		"missing claims": "eyJhbGciOiJIUzI1NiJ9.e30.",
	}
	for name, token := range cases {
		if _, err := svc.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestUnverifiedIntrospection(t *testing.T) {
	svc := testTokenService(t)
	signed, jti, _, err := svc.IssueAccessToken(&User{ID: "user-1"})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if got := svc.TokenID(signed); got != jti {
		t.Fatalf("TokenID = %q, want %q", got, jti)
	}
	if got := svc.SubjectID(signed); got != "user-1" {
		t.Fatalf("SubjectID = %q", got)
	}
	if got := svc.TokenID("garbage"); got != "" {
		t.Fatalf("TokenID(garbage) = %q", got)
	}
	if got := svc.SubjectID(""); got != "" {
		t.Fatalf("SubjectID(empty) = %q", got)
	}
}

func TestNewRefreshToken(t *testing.T) {
	svc := testTokenService(t)

	raw, rec, err := svc.NewRefreshToken("user-1", "jti-1")
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}

	id, secret, err := splitRefreshToken(raw)
	if err != nil {
		t.Fatalf("splitRefreshToken: %v", err)
	}
	if id != rec.ID {
		t.Fatalf("wire id %q != record id %q", id, rec.ID)
	}
	if rec.UserID != "user-1" || rec.AccessTokenID != "jti-1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.TokenHash == secret {
		t.Fatal("plaintext secret must not be stored")
	}
	if !secureCompareHash(rec.TokenHash, secret) {
		t.Fatal("stored hash must match the wire secret")
	}
	if secureCompareHash(rec.TokenHash, secret+"x") {
		t.Fatal("tampered secret must not match")
	}
	if !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatal("refresh expiry must be after creation")
	}

	raw2, rec2, err := svc.NewRefreshToken("user-1", "jti-2")
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if raw == raw2 || rec.TokenHash == rec2.TokenHash {
		t.Fatal("refresh tokens must be unique")
	}
}

func TestSplitRefreshToken(t *testing.T) {
	for _, raw := range []string{"", "nodot", ".secret", "id.", "a.b.c"} {
		if _, _, err := splitRefreshToken(raw); err == nil {
			t.Fatalf("splitRefreshToken(%q): expected error", raw)
		}
	}
	id, secret, err := splitRefreshToken(" tok-1.s3cret ")
	if err != nil {
		t.Fatalf("splitRefreshToken: %v", err)
	}
	if id != "tok-1" || secret != "s3cret" {
		t.Fatalf("got %q / %q", id, secret)
	}
}
