// Package model defines domain models and errors for CopyPasta.
// This package contains the core data structures (User, Entry) and
// custom error types used throughout the application.
package model

import "errors"

// Domain-specific errors for CopyPasta operations.
// These errors allow handlers to return appropriate HTTP status codes
// and messages to clients.
var (
	// ErrUsernameTaken is returned when registering a username that already exists
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidUsername is returned when a username is empty after trimming
	ErrInvalidUsername = errors.New("username must not be empty")

	// ErrPasswordTooShort is returned when a password is shorter than 4 characters
	ErrPasswordTooShort = errors.New("password must be at least 4 characters")

	// ErrAuthFailed is returned when login credentials don't match a user
	ErrAuthFailed = errors.New("invalid credentials")

	// ErrNoSession is returned when a session token is missing or unknown
	ErrNoSession = errors.New("no valid session")

	// ErrClipboardEmpty is returned when a user has no clipboard entries yet
	ErrClipboardEmpty = errors.New("clipboard is empty")

	// ErrInvalidContentType is returned when the content type is not
	// one of "text", "rich" or "image"
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrEmptyContent is returned when text content is empty after trimming
	ErrEmptyContent = errors.New("content must not be empty")

	// ErrContentTooLarge is returned when rich content exceeds the size limit
	ErrContentTooLarge = errors.New("content exceeds maximum size limit")

	// ErrInvalidImage is returned when image content is not valid base64
	// or the decoded bytes are not a recognized image format
	ErrInvalidImage = errors.New("invalid image data")

	// ErrInvalidLimit is returned when a history limit parameter is malformed
	ErrInvalidLimit = errors.New("invalid history limit")

	// ErrStorageFailure is returned when the storage backend encounters an error
	ErrStorageFailure = errors.New("storage operation failed")
)

// IsValidation returns true if the error is due to invalid input.
// This is useful for handlers to return HTTP 400 Bad Request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidUsername) ||
		errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrInvalidContentType) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrInvalidImage) ||
		errors.Is(err, ErrInvalidLimit)
}

// IsConflict returns true if the error indicates a resource conflict.
// This is useful for handlers to return HTTP 409 Conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUsernameTaken)
}

// IsUnauthorized returns true if the error indicates missing or bad credentials.
// This is useful for handlers to return HTTP 401 Unauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrNoSession)
}

// IsTooLarge returns true if the error indicates oversized content.
// This is useful for handlers to return HTTP 413 Payload Too Large.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrContentTooLarge)
}
