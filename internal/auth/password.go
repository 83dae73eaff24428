package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with bcrypt. The configured cost is
// also the rehash target: stored hashes below it are reported by NeedsRehash
// so credentials can be upgraded on the next successful login.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher, clamping the cost into the range bcrypt
// accepts.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return Hasher{cost: cost}
}

// Hash derives a salted hash from the plaintext. Identical inputs produce
// different outputs on every call. Empty or whitespace-only input is rejected.
func (h Hasher) Hash(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares plaintext against a stored hash. A malformed or
// unparseable hash verifies as false, never as an error.
func (h Hasher) Verify(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether the stored hash was produced with an outdated
// algorithm tag or a cost factor below the configured target.
func (h Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.cost
}
