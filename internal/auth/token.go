package auth

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
)

// tokenPrefix namespaces staff session tokens so they are recognizable in
// logs and support tooling without revealing anything about the bearer.
const tokenPrefix = "sst_"

const tokenRandomBytes = 32

// NewSessionToken generates an opaque high-entropy bearer token. The token
// is the only credential for a session; it is stored verbatim in the
// sessions table and never derived from account data.
func NewSessionToken() (string, error) {
	buf := make([]byte, tokenRandomBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(buf), nil
}

// LooksLikeSessionToken cheaply rejects bearer values that cannot be a
// session token, avoiding a database round trip for garbage input.
func LooksLikeSessionToken(token string) bool {
	return strings.HasPrefix(token, tokenPrefix) && len(token) == len(tokenPrefix)+tokenRandomBytes*2
}
