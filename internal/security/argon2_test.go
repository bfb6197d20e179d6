package security

import (
	"errors"
	"strings"
	"testing"
)

func testArgon2(t *testing.T) *Argon2 {
	t.Helper()
	a, err := NewArgon2(Argon2Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func TestArgon2_HashAndVerify(t *testing.T) {
	a := testArgon2(t)
	digest, err := a.Hash([]byte("Abcdef1!"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %q", digest)
	}
	if !a.Recognizes(digest) {
		t.Fatal("Recognizes should accept own digest")
	}
	ok, err := a.Verify(digest, []byte("Abcdef1!"))
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want true, nil", ok, err)
	}
	ok, err = a.Verify(digest, []byte("wrong"))
	if err != nil || ok {
		t.Fatalf("Verify wrong = %v, %v; want false, nil", ok, err)
	}
}

func TestArgon2_SaltIsRandom(t *testing.T) {
	a := testArgon2(t)
	d1, _ := a.Hash([]byte("Abcdef1!"))
	d2, _ := a.Hash([]byte("Abcdef1!"))
	if d1 == d2 {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestArgon2_VerifyMalformed(t *testing.T) {
	a := testArgon2(t)
	cases := []string{
		"",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2hvcnQ$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,x=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	}
	for _, digest := range cases {
		if _, err := a.Verify(digest, []byte("Abcdef1!")); !errors.Is(err, ErrInvalidDigest) {
			t.Errorf("Verify(%q): want ErrInvalidDigest, got %v", digest, err)
		}
	}
}

func TestArgon2_NeedsRehash(t *testing.T) {
	weak := testArgon2(t)
	digest, _ := weak.Hash([]byte("Abcdef1!"))
	strong, err := NewArgon2(Argon2Params{MemoryKB: 16 * 1024, Time: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	if !strong.NeedsRehash(digest) {
		t.Error("weaker digest should need rehash")
	}
	if weak.NeedsRehash(digest) {
		t.Error("digest with current params should not need rehash")
	}
}

func TestNewArgon2_InvalidParams(t *testing.T) {
	base := Argon2Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	mutations := map[string]func(p *Argon2Params){
		"memory":      func(p *Argon2Params) { p.MemoryKB = 1024 },
		"time":        func(p *Argon2Params) { p.Time = 0 },
		"parallelism": func(p *Argon2Params) { p.Parallelism = 0 },
		"salt":        func(p *Argon2Params) { p.SaltLength = 8 },
		"key":         func(p *Argon2Params) { p.KeyLength = 8 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			if _, err := NewArgon2(p); err == nil {
				t.Error("expected error")
			}
		})
	}
}
