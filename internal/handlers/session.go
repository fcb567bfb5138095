// internal/handlers/session.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jamsesh/jamsesh/internal/auth"
)

const sessionCookieName = "session_token"

// EnsureEphemeralSession returns the caller's session id, minting a fresh
// guest session (and setting the cookie) when none exists or the token no
// longer verifies. Every player is a guest; there are no accounts.
func EnsureEphemeralSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	cookieHeader := r.Header.Get("Cookie")
	if strings.Contains(cookieHeader, sessionCookieName+"=") {
		token := extractCookieToken(cookieHeader, sessionCookieName)
		if sub, err := auth.AuthenticateJWT(token); err == nil {
			if sid, parseErr := uuid.Parse(sub); parseErr == nil {
				return sid, nil
			}
		}
		// fall through and reissue
	}

	sid := uuid.New()
	token, err := auth.CreateJWT(sid.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session JWT: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return sid, nil
}

// extractCookieToken extracts a named cookie value from a "Cookie" header,
// or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}
