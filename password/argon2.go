package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash format")

	// ErrIncompatibleVersion is returned when a stored hash encodes an
	// argon2 version this build does not implement.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// Config holds the argon2id cost parameters.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 hashes and verifies passwords using argon2id with PHC-encoded
// output, so stored hashes are self-describing and parameters can change
// without invalidating old rows.
type Argon2 struct {
	config Config
}

func NewArgon2(config Config) (*Argon2, error) {
	if config.Memory < 8*1024 {
		return nil, errors.New("argon2 memory must be at least 8 MiB")
	}
	if config.Time < 1 {
		return nil, errors.New("argon2 time cost must be at least 1")
	}
	if config.Parallelism < 1 {
		return nil, errors.New("argon2 parallelism must be at least 1")
	}
	if config.SaltLength < 8 {
		return nil, errors.New("argon2 salt must be at least 8 bytes")
	}
	if config.KeyLength < 16 {
		return nil, errors.New("argon2 key must be at least 16 bytes")
	}
	return &Argon2{config: config}, nil
}

// Hash derives a new hash for the plaintext with a fresh random salt.
func (a *Argon2) Hash(plain string) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify checks the plaintext against a stored PHC hash. A mismatch returns
// (false, nil); only unparseable hashes produce an error.
func (a *Argon2) Verify(encodedHash, plain string) (bool, error) {
	params, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	derived := argon2.IDKey([]byte(plain), salt, params.Time, params.Memory, params.Parallelism, uint32(len(key)))

	if subtle.ConstantTimeCompare(key, derived) == 1 {
		return true, nil
	}
	return false, nil
}

// NeedsRehash reports whether a stored hash was produced with parameters
// weaker than the current configuration.
func (a *Argon2) NeedsRehash(encodedHash string) bool {
	params, _, key, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}
	return params.Memory < a.config.Memory ||
		params.Time < a.config.Time ||
		params.Parallelism < a.config.Parallelism ||
		uint32(len(key)) < a.config.KeyLength
}

func decodeHash(encodedHash string) (Config, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Config{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Config{}, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return Config{}, nil, nil, ErrIncompatibleVersion
	}

	var params Config
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Parallelism); err != nil {
		return Config{}, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Config{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Config{}, nil, nil, ErrInvalidHash
	}
	return params, salt, key, nil
}
