package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/pbkdf2"
)

const (
	MinPasswordIterations     = 5000
	DefaultPasswordIterations = 200000
	// MaxPasswordIterations is the widest count the 4-byte hash header holds.
	MaxPasswordIterations int64 = math.MaxUint32

	// MaxPasswordHashLen is the widest hash the credential store accepts.
	MaxPasswordHashLen = 64

	hashFormatV1  byte = 0x01
	hashSaltLen        = 16
	hashSubkeyLen      = 32
	hashHeaderLen      = 1 + 4
	hashLenV1          = hashHeaderLen + hashSaltLen + hashSubkeyLen
)

var (
	ErrEmptyPassword     = errors.New("password must not be empty")
	ErrIterationsTooLow  = fmt.Errorf("password hash iterations must be >= %d", MinPasswordIterations)
	ErrIterationsTooHigh = fmt.Errorf("password hash iterations must be <= %d", MaxPasswordIterations)
	ErrMalformedHash     = errors.New("malformed password hash")
	errHashWidthExceeded = errors.New("password hash exceeds storage width")
)

type VerifyResult int

const (
	VerifyFailed VerifyResult = iota
	VerifySuccess
	VerifySuccessRehashNeeded
)

func (r VerifyResult) String() string {
	switch r {
	case VerifySuccess:
		return "success"
	case VerifySuccessRehashNeeded:
		return "success_rehash_needed"
	default:
		return "failed"
	}
}

type PasswordHasherConfig struct {
	Iterations int
	// Rand overrides the salt source; nil means crypto/rand.
	Rand io.Reader
}

// PasswordHasher produces self-describing PBKDF2-HMAC-SHA256 hashes laid out as
// marker(1) | iterations(4, big endian) | salt(16) | subkey(32).
type PasswordHasher struct {
	iterations uint32
	rand       io.Reader
}

func NewPasswordHasher(cfg PasswordHasherConfig) (*PasswordHasher, error) {
	if cfg.Iterations < MinPasswordIterations {
		return nil, ErrIterationsTooLow
	}
	if int64(cfg.Iterations) > MaxPasswordIterations {
		return nil, ErrIterationsTooHigh
	}
	src := cfg.Rand
	if src == nil {
		src = rand.Reader
	}
	return &PasswordHasher{iterations: uint32(cfg.Iterations), rand: src}, nil
}

func (h *PasswordHasher) IterationCount() int { return int(h.iterations) }

func (h *PasswordHasher) Hash(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	salt := make([]byte, hashSaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	subkey := pbkdf2.Key([]byte(password), salt, int(h.iterations), hashSubkeyLen, sha256.New)

	out := make([]byte, 0, hashLenV1)
	out = append(out, hashFormatV1)
	out = binary.BigEndian.AppendUint32(out, h.iterations)
	out = append(out, salt...)
	out = append(out, subkey...)
	if len(out) > MaxPasswordHashLen {
		return nil, errHashWidthExceeded
	}
	return out, nil
}

// Verify never returns an error: anything that cannot be checked is a failure.
func (h *PasswordHasher) Verify(stored []byte, password string) VerifyResult {
	if password == "" {
		return VerifyFailed
	}
	iterations, salt, expected, err := decodeHash(stored)
	if err != nil {
		return VerifyFailed
	}
	actual := pbkdf2.Key([]byte(password), salt, int(iterations), len(expected), sha256.New)
	if subtle.ConstantTimeCompare(actual, expected) != 1 {
		return VerifyFailed
	}
	if iterations != h.iterations {
		return VerifySuccessRehashNeeded
	}
	return VerifySuccess
}

// Iterations returns the iteration count embedded in a stored hash.
func Iterations(stored []byte) (int, error) {
	iterations, _, _, err := decodeHash(stored)
	if err != nil {
		return 0, err
	}
	return int(iterations), nil
}

func decodeHash(stored []byte) (iterations uint32, salt, subkey []byte, err error) {
	if len(stored) != hashLenV1 || stored[0] != hashFormatV1 {
		return 0, nil, nil, ErrMalformedHash
	}
	iterations = binary.BigEndian.Uint32(stored[1:hashHeaderLen])
	if iterations < MinPasswordIterations {
		return 0, nil, nil, ErrMalformedHash
	}
	salt = stored[hashHeaderLen : hashHeaderLen+hashSaltLen]
	subkey = stored[hashHeaderLen+hashSaltLen:]
	return iterations, salt, subkey, nil
}
