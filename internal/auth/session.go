package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/vocalizeapp/vocalize/pkg/models"
)

// ErrUnauthenticated is the single rejection outcome for every invalid
// credential. Callers never learn whether a token was malformed, tampered
// with, or expired.
var ErrUnauthenticated = errors.New("unauthenticated")

// DefaultSessionTTL is the token lifetime when none is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Sessions mints and verifies signed, stateless session tokens of the form
// base64url(json{uid,exp}) "." base64url(hmac-sha256(secret, payload)).
type Sessions struct {
	secret []byte
	ttl    time.Duration
	crypto Crypto
	now    func() time.Time
}

// NewSessions creates a session minter/verifier
func NewSessions(secret string, ttl time.Duration, crypto Crypto) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		crypto: crypto,
		now:    time.Now,
	}
}

// Mint creates a signed session token for the given user ID.
func (s *Sessions) Mint(userID string) (string, error) {
	claims := models.Session{
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	}

	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	payload := base64.RawURLEncoding.EncodeToString(raw)
	sig := base64.RawURLEncoding.EncodeToString(s.crypto.Sign(s.secret, []byte(payload)))

	return payload + "." + sig, nil
}

// Verify checks a token's signature and expiry and returns the embedded
// user ID. Any failure returns ErrUnauthenticated.
func (s *Sessions) Verify(token string) (string, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return "", ErrUnauthenticated
	}

	expected := base64.RawURLEncoding.EncodeToString(s.crypto.Sign(s.secret, []byte(payload)))
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return "", ErrUnauthenticated
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrUnauthenticated
	}

	var claims models.Session
	if err := json.Unmarshal(raw, &claims); err != nil {
		return "", ErrUnauthenticated
	}

	if claims.UserID == "" || claims.ExpiresAt == 0 {
		return "", ErrUnauthenticated
	}
	if s.now().Unix() > claims.ExpiresAt {
		return "", ErrUnauthenticated
	}

	return claims.UserID, nil
}

// TTL returns the configured token lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}
