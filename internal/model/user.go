package model

import "strings"

// MinPasswordLength is the minimum accepted password length at registration.
const MinPasswordLength = 4

// User represents a registered account. Users are created by registration
// and never mutated or deleted afterwards; all clipboard state is scoped
// to a user id.
type User struct {
	// ID is the stable surrogate key, never reused
	ID int64

	// Username is unique, case-sensitive and trimmed
	Username string

	// PasswordHash is the bcrypt hash of the password.
	// The blob is self-describing, so verification needs no extra config.
	PasswordHash string

	// CreatedAt is the RFC3339 registration timestamp
	CreatedAt string
}

// NormalizeUsername trims surrounding whitespace from a username.
// Usernames are stored and compared in their trimmed form.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// ValidateCredentials checks registration input. The username must be
// non-empty after trimming and the password at least MinPasswordLength
// characters.
func ValidateCredentials(username, password string) error {
	if NormalizeUsername(username) == "" {
		return ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
