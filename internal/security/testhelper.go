package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"
)

// NewTestTokenProvider returns a TokenProvider signing with a freshly generated P-256 key.
// For tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(key, key.Public(), "test-issuer", "test-audience", time.Hour)
}
