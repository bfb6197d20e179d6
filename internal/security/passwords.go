package security

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrInvalidDigest is returned when a stored digest is malformed or uses an unknown algorithm.
	ErrInvalidDigest = errors.New("invalid password digest")
	// ErrPasswordTooLong is returned by an algorithm that cannot hash the full password.
	ErrPasswordTooLong = errors.New("password too long for algorithm")
)

// Algorithm is one password hashing scheme. Digests are self-describing so
// Recognizes can route verification to the scheme that produced them.
type Algorithm interface {
	ID() string
	Hash(password []byte) (string, error)
	Verify(digest string, password []byte) (bool, error)
	Recognizes(digest string) bool
	NeedsRehash(digest string) bool
}

// Passwords hashes with the current algorithm and verifies digests produced by
// any registered algorithm, so stored digests stay verifiable across upgrades.
type Passwords struct {
	current    Algorithm
	algorithms []Algorithm
}

// NewPasswords returns Passwords that hashes with current and also verifies digests from legacy.
func NewPasswords(current Algorithm, legacy ...Algorithm) *Passwords {
	algs := make([]Algorithm, 0, len(legacy)+1)
	algs = append(algs, current)
	for _, a := range legacy {
		if a != nil && a.ID() != current.ID() {
			algs = append(algs, a)
		}
	}
	return &Passwords{current: current, algorithms: algs}
}

// Current returns the identifier of the algorithm used for new digests.
func (p *Passwords) Current() string {
	return p.current.ID()
}

// Hash hashes password with the current algorithm. When the current algorithm
// rejects the password as too long, the first legacy algorithm that accepts it is used.
func (p *Passwords) Hash(password []byte) (string, error) {
	digest, err := p.current.Hash(password)
	if !errors.Is(err, ErrPasswordTooLong) {
		return digest, err
	}
	for _, a := range p.algorithms[1:] {
		if digest, ferr := a.Hash(password); ferr == nil {
			return digest, nil
		}
	}
	return "", err
}

// Verify checks password against digest using the algorithm that produced it.
// Mismatch is (false, nil); an unrecognised or malformed digest is ErrInvalidDigest.
func (p *Passwords) Verify(digest string, password []byte) (bool, error) {
	alg := p.lookup(digest)
	if alg == nil {
		return false, fmt.Errorf("%w: unrecognised algorithm", ErrInvalidDigest)
	}
	return alg.Verify(digest, password)
}

// NeedsRehash reports whether digest should be replaced with a digest from the current algorithm.
func (p *Passwords) NeedsRehash(digest string) bool {
	if !p.current.Recognizes(digest) {
		return true
	}
	return p.current.NeedsRehash(digest)
}

func (p *Passwords) lookup(digest string) Algorithm {
	for _, a := range p.algorithms {
		if a.Recognizes(digest) {
			return a
		}
	}
	return nil
}
