package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// HashPassword derives a salted digest for storage, formatted as
// base64(digest) ":" base64(salt).
func HashPassword(c Crypto, password string) (string, error) {
	salt, err := c.RandomBytes(saltLen)
	if err != nil {
		return "", err
	}

	digest := c.DeriveKey(password, salt)

	return base64.StdEncoding.EncodeToString(digest) + ":" + base64.StdEncoding.EncodeToString(salt), nil
}

// VerifyPassword re-derives the digest with the stored salt and compares it
// in constant time.
func VerifyPassword(c Crypto, stored, password string) bool {
	digestB64, saltB64, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}

	digest, err := base64.StdEncoding.DecodeString(digestB64)
	if err != nil {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	derived := c.DeriveKey(password, salt)

	return subtle.ConstantTimeCompare(derived, digest) == 1
}
