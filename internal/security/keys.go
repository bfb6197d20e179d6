package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when PEM or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

// LoadPEM returns s as bytes when it is inline PEM (literal "\n" sequences, as found in
// single-line env values, are expanded); otherwise s is treated as a file path.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

// ParsePrivateKey parses a PEM-encoded RSA or ECDSA private key. s may be inline PEM or a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case *ecdsa.PrivateKey:
			return k, nil
		}
	}
	return nil, ErrInvalidKey
}

// ParsePublicKey parses a PEM-encoded RSA or ECDSA public key. s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	}
	return nil, ErrInvalidKey
}

// LoadKeyPair parses the signing key and its public half. When publicPEM is empty the
// public key is derived from the private key.
func LoadKeyPair(privatePEM, publicPEM string) (crypto.Signer, crypto.PublicKey, error) {
	signer, err := ParsePrivateKey(privatePEM)
	if err != nil {
		return nil, nil, err
	}
	if KeyAlg(signer.Public()) == "" {
		return nil, nil, ErrUnsupportedKey
	}
	if strings.TrimSpace(publicPEM) == "" {
		return signer, signer.Public(), nil
	}
	pub, err := ParsePublicKey(publicPEM)
	if err != nil {
		return nil, nil, err
	}
	if KeyAlg(pub) != KeyAlg(signer.Public()) {
		return nil, nil, ErrInvalidKey
	}
	return signer, pub, nil
}

// KeyAlg returns "RS256" for RSA and "ES256" for ECDSA on P-256; empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		if k.Curve != elliptic.P256() {
			return ""
		}
		return "ES256"
	default:
		return ""
	}
}

func decodePEM(s string) (*pem.Block, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}
