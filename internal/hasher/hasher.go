// Package hasher provides one-way password hashing and verification.
//
// New digests are produced with argon2id and encoded in the PHC string
// format, so the salt and cost parameters travel with the digest:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// Digests produced by bcrypt are accepted for verification only.
package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrHashFormat is returned when a stored digest cannot be decoded.
var ErrHashFormat = errors.New("malformed password hash")

const argon2idPrefix = "$argon2id$"

// Params holds the argon2id cost parameters.
type Params struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultParams are the parameters used by New when none are given.
var DefaultParams = Params{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	params Params
}

// InitOption configures a Hasher.
type InitOption func(*Hasher)

// WithParams overrides the argon2id cost parameters.
// Lower costs are only meant for tests.
func WithParams(params Params) InitOption {
	return func(h *Hasher) {
		h.params = params
	}
}

// New creates a Hasher with DefaultParams unless overridden.
func New(optionsProto ...InitOption) *Hasher {
	h := &Hasher{params: DefaultParams}
	for _, protoOption := range optionsProto {
		protoOption(h)
	}

	return h
}

// Hash returns an encoded argon2id digest of password using a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("in internal/hasher/hasher.go/Hash(): error while `rand.Read()` calling: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest.
// A digest that cannot be decoded yields ErrHashFormat.
func (h *Hasher) Verify(digest, password string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, argon2idPrefix):
		return verifyArgon2id(digest, password)
	case isBcrypt(digest):
		return verifyBcrypt(digest, password)
	}

	return false, ErrHashFormat
}

func verifyArgon2id(digest, password string) (bool, error) {
	params, salt, key, err := decodeArgon2id(digest)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLen)

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodeArgon2id(digest string) (Params, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return Params{}, nil, nil, ErrHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, ErrHashFormat
	}

	var params Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return Params{}, nil, nil, ErrHashFormat
	}
	if params.Memory == 0 || params.Time == 0 || params.Threads == 0 {
		return Params{}, nil, nil, ErrHashFormat
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, ErrHashFormat
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrHashFormat
	}

	params.SaltLen = uint32(len(salt))
	params.KeyLen = uint32(len(key))

	return params, salt, key, nil
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

func verifyBcrypt(digest, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	}

	return false, ErrHashFormat
}
