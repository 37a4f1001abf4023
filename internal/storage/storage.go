// Package storage provides the persistence layer for CopyPasta.
// It defines the Store interface that abstracts the database backend,
// allowing handlers and tests to run against either the SQL
// implementation or an in-memory mock.
//
// The storage layer is responsible for:
// - User registration and credential verification
// - Atomic clipboard inserts with per-user version assignment
// - History retention (bounded, evicted inside the insert transaction)
// - Current-entry and history reads
//
// All implementations must be safe for concurrent use.
package storage

import (
	"github.com/liskl/copypasta/internal/config"
	"github.com/liskl/copypasta/internal/model"
)

// VersionCounterKey is the user_metadata key holding the last issued
// clipboard version for a user. This register is the source of truth
// for version ordering.
const VersionCounterKey = "version_counter"

// Store defines the contract for user and clipboard persistence.
// Implementations must be safe for concurrent use; methods that modify
// state are atomic.
type Store interface {
	// CreateUser registers a new user and returns its id.
	// The username is trimmed and validated, the password hashed with
	// an adaptive KDF before storing.
	// Returns model.ErrUsernameTaken if the username already exists;
	// concurrent attempts with the same username produce exactly one
	// winner.
	CreateUser(username, password string) (int64, error)

	// VerifyCredentials checks a username/password pair and returns the
	// user id on success.
	// Returns model.ErrAuthFailed on mismatch or unknown user. The cost
	// of verification must not reveal whether the user exists.
	VerifyCredentials(username, password string) (int64, error)

	// InsertEntry stores a new clipboard entry for a user and returns
	// the entry id and the newly assigned version.
	// The version bump, the insert, and the eviction of entries beyond
	// the history limit happen in a single transaction. Callers pass
	// the returned version to the Notifier.
	InsertEntry(userID int64, contentType, content, metadata, clientID string) (int64, int64, error)

	// GetCurrent returns the entry with the greatest version for a user.
	// Returns model.ErrClipboardEmpty if the user has no entries.
	GetCurrent(userID int64) (*model.Entry, error)

	// GetHistory returns up to limit entries newest-first.
	// limit is clamped to [1, history limit].
	GetHistory(userID int64, limit int) ([]*model.Entry, error)

	// GetLatestVersion returns the last issued version for a user,
	// or 0 if the user has never pasted.
	GetLatestVersion(userID int64) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// New creates the storage backend described by the configuration.
// The returned Store should be closed when no longer needed.
func New(cfg *config.Config) (Store, error) {
	return NewDatabase(cfg)
}
