package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// AlgorithmArgon2id is the identifier of the argon2id password algorithm.
const AlgorithmArgon2id = "argon2id"

const (
	minArgonMemoryKB uint32 = 8 * 1024
	minArgonSaltLen  uint32 = 16
	minArgonKeyLen   uint32 = 16
)

// Argon2Params configures Argon2.
type Argon2Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns parameters suitable for interactive login.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{MemoryKB: 64 * 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

// Argon2 hashes passwords with argon2id and encodes them in PHC string format:
// $argon2id$v=19$m=<kb>,t=<time>,p=<par>$<salt>$<hash>.
type Argon2 struct {
	params Argon2Params
}

type phcDigest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewArgon2 validates params and returns an Argon2.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	switch {
	case params.MemoryKB < minArgonMemoryKB:
		return nil, errors.New("argon2: memory must be >= 8192 KB")
	case params.Time < 1:
		return nil, errors.New("argon2: time must be >= 1")
	case params.Parallelism < 1:
		return nil, errors.New("argon2: parallelism must be >= 1")
	case params.SaltLength < minArgonSaltLen:
		return nil, errors.New("argon2: salt length must be >= 16")
	case params.KeyLength < minArgonKeyLen:
		return nil, errors.New("argon2: key length must be >= 16")
	}
	return &Argon2{params: params}, nil
}

// ID returns AlgorithmArgon2id.
func (a *Argon2) ID() string { return AlgorithmArgon2id }

// Hash derives an argon2id key from password with a fresh random salt.
func (a *Argon2) Hash(password []byte) (string, error) {
	if len(password) == 0 {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(password, salt, a.params.Time, a.params.MemoryKB, a.params.Parallelism, a.params.KeyLength)
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		AlgorithmArgon2id,
		argon2.Version,
		a.params.MemoryKB,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in digest and compares in constant time.
func (a *Argon2) Verify(digest string, password []byte) (bool, error) {
	d, err := parsePHC(digest)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	key := argon2.IDKey(password, d.salt, d.time, d.memory, d.parallelism, uint32(len(d.hash)))
	return subtle.ConstantTimeCompare(key, d.hash) == 1, nil
}

// Recognizes reports whether digest is an argon2id PHC string.
func (a *Argon2) Recognizes(digest string) bool {
	return strings.HasPrefix(digest, "$"+AlgorithmArgon2id+"$")
}

// NeedsRehash reports whether digest is weaker than the configured parameters.
func (a *Argon2) NeedsRehash(digest string) bool {
	d, err := parsePHC(digest)
	if err != nil {
		return true
	}
	return a.params.MemoryKB > d.memory ||
		a.params.Time > d.time ||
		a.params.Parallelism > d.parallelism ||
		a.params.KeyLength != uint32(len(d.hash))
}

func parsePHC(digest string) (*phcDigest, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != AlgorithmArgon2id {
		return nil, errors.New("unsupported algorithm")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	d := &phcDigest{}
	var seen int
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minArgonMemoryKB {
				return nil, errors.New("invalid memory parameter")
			}
			d.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < 1 {
				return nil, errors.New("invalid time parameter")
			}
			d.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < 1 {
				return nil, errors.New("invalid parallelism parameter")
			}
			d.parallelism = uint8(n)
		default:
			return nil, errors.New("unsupported parameter")
		}
		seen++
	}
	if seen != 3 || d.memory == 0 || d.time == 0 || d.parallelism == 0 {
		return nil, errors.New("missing parameters")
	}

	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(d.salt) < int(minArgonSaltLen) {
		return nil, errors.New("invalid salt")
	}
	if d.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.hash) == 0 {
		return nil, errors.New("invalid hash")
	}
	return d, nil
}
