// Package cryptox hashes and verifies account passwords with argon2id.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword derives a KeySize-byte argon2id key from password and salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// VerifyPassword reports whether password hashes to want under salt.
func VerifyPassword(password, salt, want []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}
