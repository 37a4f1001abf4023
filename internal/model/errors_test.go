package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrInvalidUsername))
	assert.True(t, IsValidation(ErrPasswordTooShort))
	assert.True(t, IsValidation(ErrInvalidContentType))
	assert.True(t, IsValidation(ErrEmptyContent))
	assert.True(t, IsValidation(ErrInvalidImage))
	assert.True(t, IsValidation(ErrInvalidLimit))

	assert.False(t, IsValidation(ErrUsernameTaken))
	assert.False(t, IsValidation(ErrStorageFailure))
	assert.False(t, IsValidation(nil))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(ErrUsernameTaken))
	assert.False(t, IsConflict(ErrAuthFailed))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(ErrAuthFailed))
	assert.True(t, IsUnauthorized(ErrNoSession))
	assert.False(t, IsUnauthorized(ErrUsernameTaken))
}

func TestIsTooLarge(t *testing.T) {
	assert.True(t, IsTooLarge(ErrContentTooLarge))
	assert.False(t, IsTooLarge(ErrEmptyContent))
}

func TestClassifiers_WrappedErrors(t *testing.T) {
	// Classifiers must see through fmt.Errorf %w wrapping
	wrapped := fmt.Errorf("inserting user: %w", ErrUsernameTaken)
	assert.True(t, IsConflict(wrapped))
	assert.True(t, errors.Is(wrapped, ErrUsernameTaken))
}
