package auth

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCrypto is a deterministic Crypto for exercising callers without real
// key derivation cost or randomness.
type fakeCrypto struct {
	counter uint64
}

func (f *fakeCrypto) Sign(key, message []byte) []byte {
	out := make([]byte, 32)
	copy(out, key)
	for i, b := range message {
		out[i%32] ^= b
	}
	return out
}

func (f *fakeCrypto) DeriveKey(password string, salt []byte) []byte {
	out := make([]byte, kdfKeyLen)
	copy(out, password)
	for i, b := range salt {
		out[(i+1)%kdfKeyLen] ^= b
	}
	return out
}

func (f *fakeCrypto) RandomBytes(n int) ([]byte, error) {
	f.counter++
	out := make([]byte, n)
	binary.BigEndian.PutUint64(out[:8], f.counter)
	return out, nil
}

func TestStdCryptoSign(t *testing.T) {
	c := NewStdCrypto()

	sig := c.Sign([]byte("key"), []byte("message"))
	assert.Len(t, sig, 32)

	// Same inputs, same signature
	assert.Equal(t, sig, c.Sign([]byte("key"), []byte("message")))

	// Different key or message changes the signature
	assert.NotEqual(t, sig, c.Sign([]byte("other"), []byte("message")))
	assert.NotEqual(t, sig, c.Sign([]byte("key"), []byte("other")))
}

func TestStdCryptoDeriveKey(t *testing.T) {
	c := NewStdCrypto()
	salt := []byte("0123456789abcdef")

	key := c.DeriveKey("password", salt)
	assert.Len(t, key, kdfKeyLen)
	assert.Equal(t, key, c.DeriveKey("password", salt))
	assert.NotEqual(t, key, c.DeriveKey("password", []byte("fedcba9876543210")))
	assert.NotEqual(t, key, c.DeriveKey("Password", salt))
}

func TestStdCryptoRandomBytes(t *testing.T) {
	c := NewStdCrypto()

	a, err := c.RandomBytes(16)
	require.NoError(t, err)
	b, err := c.RandomBytes(16)
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestSessionsWithFakeCrypto(t *testing.T) {
	s := NewSessions("secret", time.Hour, &fakeCrypto{})

	token, err := s.Mint("user-123")
	require.NoError(t, err)

	userID, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}
