package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2 parameters for password digesting
	kdfIterations = 100_000
	kdfKeyLen     = 32
	saltLen       = 16
)

// Crypto is the capability interface for the cryptographic primitives the
// credential component depends on. Injecting it keeps session and password
// logic testable with deterministic implementations.
type Crypto interface {
	// Sign computes an HMAC-SHA256 signature of message under key.
	Sign(key, message []byte) []byte
	// DeriveKey stretches a password with the given salt into a fixed-size key.
	DeriveKey(password string, salt []byte) []byte
	// RandomBytes returns n cryptographically random bytes.
	RandomBytes(n int) ([]byte, error)
}

// StdCrypto is the production Crypto implementation
type StdCrypto struct{}

// NewStdCrypto creates the production crypto provider
func NewStdCrypto() *StdCrypto {
	return &StdCrypto{}
}

func (StdCrypto) Sign(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}

func (StdCrypto) DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, kdfKeyLen, sha256.New)
}

func (StdCrypto) RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
