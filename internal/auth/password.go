package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters. The stored form carries only salt and hash, so these
// are fixed: changing them invalidates existing hashes.
const (
	saltLength  = 16
	keyLength   = 32
	timeCost    = 1
	memoryKB    = 64 * 1024
	parallelism = 4
)

// HashPassword derives an argon2id hash of the plaintext under a fresh
// random salt and returns the stored form "saltHex:hashHex". Two calls with
// the same plaintext produce different stored forms.
func HashPassword(plain string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(plain), salt, timeCost, memoryKB, parallelism, keyLength)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(hash), nil
}

// VerifyPassword re-derives the hash with the stored salt and compares in
// constant time. Any malformed stored form reports false rather than an
// error, so a corrupted hash is indistinguishable from a wrong password.
func VerifyPassword(stored, plain string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := hex.DecodeString(parts[1])
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(plain), salt, timeCost, memoryKB, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
