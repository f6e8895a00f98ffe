package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// SessionCookie frames a minted token as a browser cookie.
func SessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// ClearSessionCookie instructs the client to discard the session cookie.
// Tokens are stateless, so logout is purely client-side.
func ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}
