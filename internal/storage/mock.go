// Mock storage implementation for testing.
// MockStore keeps everything in memory with the same semantics as the
// database backend: trimmed unique usernames, bcrypt-verified passwords,
// per-user monotonic versions, and history eviction on insert.
package storage

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/liskl/copypasta/internal/model"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu           sync.Mutex
	historyLimit int
	nextUserID   int64
	nextEntryID  int64
	users        map[string]*model.User   // by username
	entries      map[int64][]*model.Entry // by user id, unordered
	counters     map[int64]int64          // version counter by user id

	// FailWrites makes mutating operations return ErrStorageFailure,
	// for exercising 500 paths in handler tests.
	FailWrites bool
}

// NewMockStore creates an empty in-memory store with the given history limit.
func NewMockStore(historyLimit int) *MockStore {
	return &MockStore{
		historyLimit: historyLimit,
		users:        make(map[string]*model.User),
		entries:      make(map[int64][]*model.Entry),
		counters:     make(map[int64]int64),
	}
}

// CreateUser registers a user in memory.
// Uses the minimum bcrypt cost to keep tests fast.
func (m *MockStore) CreateUser(username, password string) (int64, error) {
	if err := model.ValidateCredentials(username, password); err != nil {
		return 0, err
	}
	username = model.NormalizeUsername(username)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return 0, model.ErrStorageFailure
	}
	if _, exists := m.users[username]; exists {
		return 0, model.ErrUsernameTaken
	}

	m.nextUserID++
	m.users[username] = &model.User{
		ID:           m.nextUserID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	return m.nextUserID, nil
}

// VerifyCredentials checks a username/password pair.
func (m *MockStore) VerifyCredentials(username, password string) (int64, error) {
	username = model.NormalizeUsername(username)

	m.mu.Lock()
	user, exists := m.users[username]
	m.mu.Unlock()

	if !exists {
		return 0, model.ErrAuthFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return 0, model.ErrAuthFailed
	}
	return user.ID, nil
}

// InsertEntry appends an entry, bumps the version counter, and evicts
// entries beyond the history limit.
func (m *MockStore) InsertEntry(userID int64, contentType, content, metadata, clientID string) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return 0, 0, model.ErrStorageFailure
	}

	m.counters[userID]++
	version := m.counters[userID]

	m.nextEntryID++
	entry := &model.Entry{
		ID:          m.nextEntryID,
		UserID:      userID,
		ContentType: contentType,
		Content:     content,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Version:     version,
		ClientID:    clientID,
	}

	kept := append(m.entries[userID], entry)
	cutoff := version - int64(m.historyLimit)
	filtered := kept[:0]
	for _, e := range kept {
		if e.Version > cutoff {
			filtered = append(filtered, e)
		}
	}
	m.entries[userID] = filtered

	return entry.ID, version, nil
}

// GetCurrent returns the highest-version entry for a user.
func (m *MockStore) GetCurrent(userID int64) (*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *model.Entry
	for _, e := range m.entries[userID] {
		if current == nil || e.Version > current.Version {
			current = e
		}
	}
	if current == nil {
		return nil, model.ErrClipboardEmpty
	}
	copied := *current
	return &copied, nil
}

// GetHistory returns up to limit entries newest-first.
func (m *MockStore) GetHistory(userID int64, limit int) ([]*model.Entry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > m.historyLimit {
		limit = m.historyLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]*model.Entry, 0, len(m.entries[userID]))
	for _, e := range m.entries[userID] {
		copied := *e
		entries = append(entries, &copied)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Version > entries[j].Version
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// GetLatestVersion returns the version counter for a user, 0 if absent.
func (m *MockStore) GetLatestVersion(userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[userID], nil
}

// Close is a no-op for the in-memory store.
func (m *MockStore) Close() error {
	return nil
}
