// Package security implements identity resolution, principal lifecycle, and
// the permission engine.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Hash and salt are stored in separate columns, both
// base64-encoded.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPassword derives an argon2id hash for the password under a fresh
// random salt.
func HashPassword(password string) (hash, salt string, err error) {
	raw := make([]byte, saltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), raw, argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.RawStdEncoding.EncodeToString(key), base64.RawStdEncoding.EncodeToString(raw), nil
}

// VerifyPassword reports whether the password matches the stored hash and
// salt. Accounts created without a password never verify.
func VerifyPassword(password, hash, salt string) bool {
	if hash == "" || salt == "" {
		return false
	}
	rawSalt, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return false
	}
	rawHash, err := base64.RawStdEncoding.DecodeString(hash)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(password), rawSalt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(key, rawHash) == 1
}

// NewTokenSecret generates a URL-safe random secret for bearer tokens.
func NewTokenSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
