package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"

	DefaultBcryptCost        = 10
	DefaultPasswordMinLength = 6
	// bcrypt ignores nothing past 72 bytes; it refuses the input instead.
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrInvalidDigest    = errors.New("invalid password digest")
)

// IsPolicyViolation reports whether err rejects the caller's input rather
// than signalling a hashing failure.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordTooLong)
}

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var defaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

type PasswordOptions struct {
	Scheme     string
	BcryptCost int
	MinLength  int
	Argon2     Argon2Params
}

type PasswordHasher struct {
	scheme     string
	bcryptCost int
	minLength  int
	argon2     Argon2Params
}

func NewPasswordHasher(opts PasswordOptions) (*PasswordHasher, error) {
	h := &PasswordHasher{
		scheme:     strings.ToLower(strings.TrimSpace(opts.Scheme)),
		bcryptCost: opts.BcryptCost,
		minLength:  opts.MinLength,
		argon2:     opts.Argon2,
	}
	if h.scheme == "" {
		h.scheme = SchemeBcrypt
	}
	if h.bcryptCost == 0 {
		h.bcryptCost = DefaultBcryptCost
	}
	if h.minLength <= 0 {
		h.minLength = DefaultPasswordMinLength
	}
	if h.argon2 == (Argon2Params{}) {
		h.argon2 = defaultArgon2Params
	}

	switch h.scheme {
	case SchemeBcrypt:
		if h.bcryptCost < bcrypt.MinCost || h.bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d..%d]", h.bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	case SchemeArgon2id:
	default:
		return nil, fmt.Errorf("unknown password scheme %q", opts.Scheme)
	}
	if h.minLength > MaxPasswordLength {
		return nil, fmt.Errorf("password min length %d exceeds %d", h.minLength, MaxPasswordLength)
	}
	return h, nil
}

// Normalize trims the plaintext and applies the length policy.
func (h *PasswordHasher) Normalize(password string) (string, error) {
	password = strings.TrimSpace(password)
	if len([]rune(password)) < h.minLength {
		return "", fmt.Errorf("%w: at least %d characters required", ErrPasswordTooShort, h.minLength)
	}
	if len(password) > MaxPasswordLength {
		return "", fmt.Errorf("%w: at most %d bytes allowed", ErrPasswordTooLong, MaxPasswordLength)
	}
	return password, nil
}

// Hash normalizes password and returns a salted digest safe to persist.
func (h *PasswordHasher) Hash(password string) ([]byte, error) {
	password, err := h.Normalize(password)
	if err != nil {
		return nil, err
	}

	if h.scheme == SchemeArgon2id {
		return hashArgon2id(password, h.argon2)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}
	return digest, nil
}

// Verify compares password with digest in constant time. Digests produced by
// either scheme are accepted regardless of the configured one.
func (h *PasswordHasher) Verify(password string, digest []byte) (bool, error) {
	password = strings.TrimSpace(password)

	if strings.HasPrefix(string(digest), "$argon2id$") {
		return verifyArgon2id(password, digest)
	}

	err := bcrypt.CompareHashAndPassword(digest, []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
}

func hashArgon2id(password string, params Argon2Params) ([]byte, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLen)

	b64 := base64.RawStdEncoding
	result := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.Memory, params.Time, params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(hash))

	return []byte(result), nil
}

func verifyArgon2id(password string, encoded []byte) (bool, error) {
	// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
	parts := strings.Split(string(encoded), "$")
	if len(parts) != 6 || parts[1] != SchemeArgon2id {
		return false, ErrInvalidDigest
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return false, ErrInvalidDigest
	}

	var params Argon2Params
	for _, kv := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return false, ErrInvalidDigest
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return false, ErrInvalidDigest
		}
		switch key {
		case "m":
			params.Memory = uint32(n)
		case "t":
			params.Time = uint32(n)
		case "p":
			if n > 255 {
				return false, ErrInvalidDigest
			}
			params.Threads = uint8(n)
		default:
			return false, ErrInvalidDigest
		}
	}
	if params.Memory == 0 || params.Time == 0 || params.Threads == 0 {
		return false, ErrInvalidDigest
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: decode salt", ErrInvalidDigest)
	}
	hash, err := b64.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return false, fmt.Errorf("%w: decode hash", ErrInvalidDigest)
	}

	computed := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}
