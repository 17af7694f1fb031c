package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// shareTokenBytes gives 128 bits of entropy, encoded to 22 URL-safe
// characters. Collisions are practically impossible; the unique index on
// the token column is the backstop, and callers re-mint on a duplicate.
const shareTokenBytes = 16

// NewShareToken returns a cryptographically random, URL-safe share token.
func NewShareToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
