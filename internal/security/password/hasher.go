package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// KDF parameters are fixed for the lifetime of stored credentials; changing
// any of them invalidates verification for existing rows.
const (
	saltSize   = 16
	keySize    = 32
	iterations = 100000
)

// Hasher derives and verifies salted PBKDF2-HMAC-SHA512 password digests.
// It holds no mutable state and is safe for concurrent use.
type Hasher struct{}

// NewHasher creates a password hasher with the fixed KDF parameters.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash derives a digest from the password with a fresh random salt.
// Both digest and salt are returned base64-encoded.
func (h *Hasher) Hash(password string) (hash, salt string, err error) {
	saltBytes := make([]byte, saltSize)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hashBytes := pbkdf2.Key([]byte(password), saltBytes, iterations, keySize, sha512.New)

	return base64.StdEncoding.EncodeToString(hashBytes),
		base64.StdEncoding.EncodeToString(saltBytes),
		nil
}

// Verify re-derives the digest from the candidate password and the stored
// salt, then compares the two digests in constant time. A digest mismatch
// returns false; a stored value that does not decode returns an error, since
// that indicates corrupted credential data rather than a wrong password.
func (h *Hasher) Verify(password, storedHash, storedSalt string) (bool, error) {
	saltBytes, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false, fmt.Errorf("failed to decode stored salt: %w", err)
	}

	storedHashBytes, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false, fmt.Errorf("failed to decode stored hash: %w", err)
	}

	inputHashBytes := pbkdf2.Key([]byte(password), saltBytes, iterations, keySize, sha512.New)

	return subtle.ConstantTimeCompare(storedHashBytes, inputHashBytes) == 1, nil
}
