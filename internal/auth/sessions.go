// Package auth provides the session substrate the clipboard API rides
// on: opaque token issuance, validation, and the cookie plumbing that
// carries tokens between browser and server.
//
// Sessions live in process memory and are lost on restart; clients
// simply log in again. Cookie values are HMAC-signed with the
// configured secret so a forged or truncated cookie is rejected before
// the session table is consulted.
package auth

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/liskl/copypasta/internal/config"
	"github.com/liskl/copypasta/internal/model"
	"github.com/liskl/copypasta/internal/util"
)

// CookieMaxAge keeps sessions effectively non-expiring until logout.
const CookieMaxAge = 365 * 24 * 60 * 60 // one year, in seconds

// Sessions is the in-memory session table. Validation is an O(1) map
// lookup behind a read lock; safe for concurrent use.
type Sessions struct {
	mu         sync.RWMutex
	byToken    map[string]int64 // token -> user id
	key        []byte
	cookieName string
	secure     bool
}

// NewSessions creates a session table using the configured signing
// secret. When no secret is configured a random per-process key is
// generated, which is logged because sessions then cannot outlive the
// process even if the table were persisted.
func NewSessions(cfg *config.Config) (*Sessions, error) {
	secret := cfg.Session.Secret
	if secret == "" {
		generated, err := util.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generating session key: %w", err)
		}
		secret = generated
		log.Println("WARNING: SECRET_KEY not set, using a random per-process session key")
	}

	return &Sessions{
		byToken:    make(map[string]int64),
		key:        []byte(secret),
		cookieName: cfg.Session.CookieName,
		secure:     cfg.Session.Secure,
	}, nil
}

// Issue creates a session bound to userID and returns the signed cookie
// value ("token.signature").
func (s *Sessions) Issue(userID int64) (string, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	s.mu.Lock()
	s.byToken[token] = userID
	s.mu.Unlock()

	return token + "." + util.SignToken(token, s.key), nil
}

// Validate resolves a signed cookie value to a user id.
// Returns model.ErrNoSession for missing, malformed, forged, or
// revoked values.
func (s *Sessions) Validate(value string) (int64, error) {
	token, ok := s.splitAndVerify(value)
	if !ok {
		return 0, model.ErrNoSession
	}

	s.mu.RLock()
	userID, exists := s.byToken[token]
	s.mu.RUnlock()

	if !exists {
		return 0, model.ErrNoSession
	}
	return userID, nil
}

// Revoke invalidates the session carried by a signed cookie value.
// Revoking an unknown or malformed value is a no-op.
func (s *Sessions) Revoke(value string) {
	token, ok := s.splitAndVerify(value)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.byToken, token)
	s.mu.Unlock()
}

// splitAndVerify separates "token.signature" and checks the signature.
func (s *Sessions) splitAndVerify(value string) (string, bool) {
	token, signature, found := strings.Cut(value, ".")
	if !found || token == "" {
		return "", false
	}
	if !util.VerifyTokenSignature(token, signature, s.key) {
		return "", false
	}
	return token, true
}

// FromRequest resolves the request's session cookie to a user id.
func (s *Sessions) FromRequest(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return 0, model.ErrNoSession
	}
	return s.Validate(cookie.Value)
}

// SetCookie attaches a session cookie carrying value to the response.
// HTTP-only, path=/; Secure when serving over TLS.
func (s *Sessions) SetCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on the client.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieName returns the configured session cookie name.
func (s *Sessions) CookieName() string {
	return s.cookieName
}
