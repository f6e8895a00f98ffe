package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyPassword(t *testing.T) {
	c := &fakeCrypto{}

	stored, err := HashPassword(c, "hunter22")
	require.NoError(t, err)
	require.Contains(t, stored, ":")

	assert.True(t, VerifyPassword(c, stored, "hunter22"))
	assert.False(t, VerifyPassword(c, stored, "hunter23"))
	assert.False(t, VerifyPassword(c, stored, ""))
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	c := NewStdCrypto()

	a, err := HashPassword(c, "same-password")
	require.NoError(t, err)
	b, err := HashPassword(c, "same-password")
	require.NoError(t, err)

	// Per-identity random salt means identical passwords never collide
	assert.NotEqual(t, a, b)
	assert.True(t, VerifyPassword(c, a, "same-password"))
	assert.True(t, VerifyPassword(c, b, "same-password"))
}

func TestVerifyPasswordMalformedStored(t *testing.T) {
	c := &fakeCrypto{}

	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"bad digest encoding", "!!!:c2FsdA=="},
		{"bad salt encoding", "ZGlnZXN0:!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifyPassword(c, tt.stored, "password"))
		})
	}
}

func TestNewAPIKey(t *testing.T) {
	c := NewStdCrypto()

	key, digest, err := NewAPIKey(c)
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.NotContains(t, key, "=")
	assert.Len(t, digest, 64, "sha-256 hex digest")
	assert.Equal(t, strings.ToLower(digest), digest)

	// The stored digest must be recomputable from the plaintext key
	assert.Equal(t, digest, HashAPIKey(key))
	assert.NotEqual(t, digest, HashAPIKey(key+"x"))
}
