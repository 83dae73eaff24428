package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashRejectsEmptyInput(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	for _, input := range []string{"", "   ", "\t"} {
		if _, err := h.Hash(input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Hash(%q): expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestHashIsRandomized(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	first, err := h.Hash("s3cret-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := h.Hash("s3cret-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for identical input")
	}
	if !h.Verify("s3cret-password", first) || !h.Verify("s3cret-password", second) {
		t.Fatal("both hashes must verify")
	}
}

func TestVerifyFailures(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if h.Verify("wrong-horse", hash) {
		t.Fatal("wrong password must not verify")
	}
	if h.Verify("", hash) {
		t.Fatal("empty password must not verify")
	}
	if h.Verify("correct-horse", "") {
		t.Fatal("empty hash must not verify")
	}
	// A malformed stored hash verifies as false, it never errors out.
	if h.Verify("correct-horse", "not-a-bcrypt-hash") {
		t.Fatal("malformed hash must not verify")
	}
}

func TestNeedsRehash(t *testing.T) {
	low := NewHasher(bcrypt.MinCost)
	hash, err := low.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	target := NewHasher(bcrypt.MinCost + 2)
	if !target.NeedsRehash(hash) {
		t.Fatal("hash below target cost should need rehash")
	}
	if low.NeedsRehash(hash) {
		t.Fatal("hash at target cost should not need rehash")
	}
	if !target.NeedsRehash("$unknown$garbage") {
		t.Fatal("unparseable hash should need rehash")
	}
}
