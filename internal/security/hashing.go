package security

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AlgorithmBcrypt is the identifier of the bcrypt password algorithm.
const AlgorithmBcrypt = "bcrypt"

const bcryptMaxBytes = 72

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to 4–31.
// Zero or negative selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// ID returns AlgorithmBcrypt.
func (h *Hasher) ID() string { return AlgorithmBcrypt }

// Hash produces a bcrypt digest of password suitable for storage. bcrypt only
// reads 72 bytes, so longer passwords (32 multi-byte runes can reach 128) fail
// with ErrPasswordTooLong instead of being truncated.
func (h *Hasher) Hash(password []byte) (string, error) {
	if len(password) == 0 {
		return "", ErrEmptyPassword
	}
	if len(password) > bcryptMaxBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares password against digest in constant time. A mismatch returns
// (false, nil); a digest that is not valid bcrypt returns ErrInvalidDigest.
func (h *Hasher) Verify(digest string, password []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), password)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
}

// Recognizes reports whether digest is a bcrypt digest.
func (h *Hasher) Recognizes(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

// NeedsRehash reports whether digest was produced with a lower cost than h.Cost.
func (h *Hasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}
	return cost < h.Cost
}
