package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func ecPEM(t *testing.T) (privatePEM, publicPEM string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})),
		string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
}

func rsaPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func TestLoadPEM_InlineWithLiteralNewlines(t *testing.T) {
	priv, _ := ecPEM(t)
	oneLine := strings.ReplaceAll(strings.TrimSpace(priv), "\n", `\n`)
	b, err := LoadPEM(oneLine)
	if err != nil {
		t.Fatalf("LoadPEM: %v", err)
	}
	if string(b) != strings.TrimSpace(priv) {
		t.Fatal("LoadPEM should expand literal \\n sequences")
	}
	if _, err := ParsePrivateKey(oneLine); err != nil {
		t.Fatalf("ParsePrivateKey(single line): %v", err)
	}
}

func TestLoadPEM_FilePath(t *testing.T) {
	priv, _ := ecPEM(t)
	path := filepath.Join(t.TempDir(), "jwt.pem")
	if err := os.WriteFile(path, []byte(priv), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := LoadPEM(path)
	if err != nil {
		t.Fatalf("LoadPEM: %v", err)
	}
	if string(b) != priv {
		t.Error("LoadPEM(file) content mismatch")
	}
}

func TestLoadPEM_Errors(t *testing.T) {
	if _, err := LoadPEM("   "); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("LoadPEM(blank): want ErrInvalidKey, got %v", err)
	}
	if _, err := LoadPEM(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("LoadPEM(missing file): expected error")
	}
}

func TestParsePrivateKey_RSAAndEC(t *testing.T) {
	rsaKey, err := ParsePrivateKey(rsaPEM(t))
	if err != nil {
		t.Fatalf("ParsePrivateKey(RSA): %v", err)
	}
	if KeyAlg(rsaKey.Public()) != "RS256" {
		t.Errorf("RSA KeyAlg = %q", KeyAlg(rsaKey.Public()))
	}
	priv, _ := ecPEM(t)
	ecKey, err := ParsePrivateKey(priv)
	if err != nil {
		t.Fatalf("ParsePrivateKey(EC): %v", err)
	}
	if KeyAlg(ecKey.Public()) != "ES256" {
		t.Errorf("EC KeyAlg = %q", KeyAlg(ecKey.Public()))
	}
}

func TestParsePrivateKey_RejectsGarbage(t *testing.T) {
	garbage := "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"
	if _, err := ParsePrivateKey(garbage); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
	if _, err := ParsePublicKey("-----BEGIN nothing"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
}

func TestLoadKeyPair(t *testing.T) {
	priv, pub := ecPEM(t)

	signer, derived, err := LoadKeyPair(priv, "")
	if err != nil {
		t.Fatalf("LoadKeyPair(derive): %v", err)
	}
	if KeyAlg(derived) != "ES256" || signer == nil {
		t.Fatal("derived public key should be ECDSA")
	}

	if _, _, err := LoadKeyPair(priv, pub); err != nil {
		t.Fatalf("LoadKeyPair(explicit): %v", err)
	}

	rsaPriv := rsaPEM(t)
	if _, _, err := LoadKeyPair(rsaPriv, pub); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("mismatched key types: want ErrInvalidKey, got %v", err)
	}
}

func TestKeyAlg_Unknown(t *testing.T) {
	if got := KeyAlg("not a key"); got != "" {
		t.Errorf("KeyAlg(unknown) = %q, want empty", got)
	}
}

func TestLoadKeyPair_RejectsNonP256Curve(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}
	p384 := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	if _, _, err := LoadKeyPair(p384, ""); !errors.Is(err, ErrUnsupportedKey) {
		t.Fatalf("P-384 key: want ErrUnsupportedKey, got %v", err)
	}
	if got := KeyAlg(key.Public()); got != "" {
		t.Errorf("KeyAlg(P-384) = %q, want empty", got)
	}
}
