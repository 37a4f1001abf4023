// Package util provides cryptographic utilities for CopyPasta.
// These utilities are used by the auth layer for generating session
// tokens and signing the cookies that carry them.
//
// Security note: All random material comes from Go's crypto/rand, which
// is cryptographically secure. Cookie signatures use HMAC-SHA256 with
// constant-time comparison.
package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// TokenSize is the number of random bytes in a session token.
// 32 bytes (256 bits) comfortably exceeds the 128-bit minimum the
// session scheme requires.
const TokenSize = 32

// KeySize is the number of random bytes in a generated signing key.
const KeySize = 32

// RandomBytes generates n cryptographically random bytes.
// Returns an error if the system's random number generator fails.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}

// GenerateToken creates a new opaque session token.
// The token is base64url-encoded so it is safe to place in a cookie.
func GenerateToken() (string, error) {
	b, err := RandomBytes(TokenSize)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateKey creates a random signing key for use when no SECRET_KEY
// is configured. Sessions signed with a generated key do not survive a
// restart, which is acceptable because the session table is in-memory
// anyway.
func GenerateKey() (string, error) {
	b, err := RandomBytes(KeySize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// SignToken computes the hex HMAC-SHA256 signature of a token under key.
// The signature travels with the token inside the session cookie, so a
// forged or truncated cookie is rejected before any table lookup.
func SignToken(token string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyTokenSignature securely compares a provided signature against the
// expected signature for token. Uses constant-time comparison to prevent
// timing attacks.
func VerifyTokenSignature(token, signature string, key []byte) bool {
	expected := SignToken(token, key)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}
