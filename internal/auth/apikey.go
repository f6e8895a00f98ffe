package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const apiKeyLen = 32

// NewAPIKey generates an opaque API key and its storable digest. The
// plaintext key is shown to the caller once and never persisted.
func NewAPIKey(c Crypto) (key string, digest string, err error) {
	raw, err := c.RandomBytes(apiKeyLen)
	if err != nil {
		return "", "", err
	}

	key = base64.RawURLEncoding.EncodeToString(raw)
	return key, HashAPIKey(key), nil
}

// HashAPIKey returns the SHA-256 hex digest under which a key is stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
