package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liskl/copypasta/internal/config"
	"github.com/liskl/copypasta/internal/model"
)

// skipIfNoCGO skips the test if SQLite is not available (requires CGO)
func skipIfNoCGO(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.DSN = ":memory:"
	_, err := NewDatabase(cfg)
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skip("Skipping test: SQLite requires CGO which is not available")
	}
}

// testDatabase creates a SQLite-backed store in a temp directory.
// Automatically skips the test if CGO is not available.
func testDatabase(t *testing.T, historyLimit int) *Database {
	skipIfNoCGO(t)

	cfg := config.DefaultConfig()
	cfg.Clipboard.HistoryLimit = historyLimit
	cfg.Model.DSN = filepath.Join(t.TempDir(), "test.db")

	db, err := NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_CreatesTables(t *testing.T) {
	db := testDatabase(t, 50)

	// Verify tables exist by attempting operations
	version, err := db.GetLatestVersion(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestDatabase_CreateUser_Success(t *testing.T) {
	db := testDatabase(t, 50)

	id, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
}

func TestDatabase_CreateUser_TrimsUsername(t *testing.T) {
	db := testDatabase(t, 50)

	_, err := db.CreateUser("  alice  ", "hunter2")
	require.NoError(t, err)

	// The trimmed name verifies; the padded one is the same user
	_, err = db.VerifyCredentials("alice", "hunter2")
	assert.NoError(t, err)
}

func TestDatabase_CreateUser_Validation(t *testing.T) {
	db := testDatabase(t, 50)

	_, err := db.CreateUser("   ", "hunter2")
	assert.ErrorIs(t, err, model.ErrInvalidUsername)

	_, err = db.CreateUser("alice", "abc")
	assert.ErrorIs(t, err, model.ErrPasswordTooShort)
}

func TestDatabase_CreateUser_Duplicate_ReturnsError(t *testing.T) {
	db := testDatabase(t, 50)

	_, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	_, err = db.CreateUser("alice", "different")
	assert.ErrorIs(t, err, model.ErrUsernameTaken)
}

func TestDatabase_CreateUser_ConcurrentDuplicate_OneWinner(t *testing.T) {
	db := testDatabase(t, 50)

	const attempts = 8
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = db.CreateUser("bob", "hunter2")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, model.ErrUsernameTaken)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestDatabase_VerifyCredentials(t *testing.T) {
	db := testDatabase(t, 50)

	id, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	gotID, err := db.VerifyCredentials("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)

	_, err = db.VerifyCredentials("alice", "wrong")
	assert.ErrorIs(t, err, model.ErrAuthFailed)

	_, err = db.VerifyCredentials("nobody", "hunter2")
	assert.ErrorIs(t, err, model.ErrAuthFailed)
}

func TestDatabase_VerifyCredentials_TimingUniform(t *testing.T) {
	db := testDatabase(t, 50)

	_, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	// Warm the dummy hash so its one-time generation is not measured
	db.VerifyCredentials("warmup-nobody", "hunter2")

	start := time.Now()
	db.VerifyCredentials("alice", "wrong-password")
	existing := time.Since(start)

	start = time.Now()
	db.VerifyCredentials("nobody", "wrong-password")
	missing := time.Since(start)

	// Both paths burn a bcrypt verification; the unknown-user path must
	// not be dramatically cheaper than the known-user path.
	assert.Greater(t, missing, existing/4,
		"verification for a missing user should cost about as much as for an existing one")
}

func TestDatabase_InsertEntry_AssignsIncreasingVersions(t *testing.T) {
	db := testDatabase(t, 50)

	userID, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	for want := int64(1); want <= 5; want++ {
		_, version, err := db.InsertEntry(userID, model.ContentTypeText, fmt.Sprintf("paste %d", want), "{}", "A")
		require.NoError(t, err)
		assert.Equal(t, want, version)
	}
}

func TestDatabase_InsertEntry_ConcurrentSameUser_NoGapsNoDuplicates(t *testing.T) {
	db := testDatabase(t, 50)

	userID, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	const pastes = 20
	versions := make([]int64, pastes)

	var wg sync.WaitGroup
	for i := 0; i < pastes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, v, err := db.InsertEntry(userID, model.ContentTypeText, "concurrent", "{}", "")
			assert.NoError(t, err)
			versions[i] = v
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, pastes)
	for _, v := range versions {
		assert.False(t, seen[v], "version %d issued twice", v)
		seen[v] = true
	}
	for v := int64(1); v <= pastes; v++ {
		assert.True(t, seen[v], "version %d missing", v)
	}
}

func TestDatabase_InsertEntry_EvictsBeyondHistoryLimit(t *testing.T) {
	db := testDatabase(t, 3)

	userID, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	for _, content := range []string{"a", "b", "c", "d", "e"} {
		_, _, err := db.InsertEntry(userID, model.ContentTypeText, content, "{}", "")
		require.NoError(t, err)
	}

	entries, err := db.GetHistory(userID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first with the versions they were assigned
	assert.Equal(t, "e", entries[0].Content)
	assert.Equal(t, int64(5), entries[0].Version)
	assert.Equal(t, "d", entries[1].Content)
	assert.Equal(t, int64(4), entries[1].Version)
	assert.Equal(t, "c", entries[2].Content)
	assert.Equal(t, int64(3), entries[2].Version)

	// The counter keeps climbing past evicted entries
	latest, err := db.GetLatestVersion(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), latest)
}

func TestDatabase_GetCurrent(t *testing.T) {
	db := testDatabase(t, 50)

	userID, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	_, err = db.GetCurrent(userID)
	assert.ErrorIs(t, err, model.ErrClipboardEmpty)

	_, _, err = db.InsertEntry(userID, model.ContentTypeText, "one", `{"ua":"cli"}`, "A")
	require.NoError(t, err)
	_, _, err = db.InsertEntry(userID, model.ContentTypeText, "two", "{}", "B")
	require.NoError(t, err)

	entry, err := db.GetCurrent(userID)
	require.NoError(t, err)
	assert.Equal(t, "two", entry.Content)
	assert.Equal(t, int64(2), entry.Version)
	assert.Equal(t, "B", entry.ClientID)
	assert.Equal(t, model.ContentTypeText, entry.ContentType)
	assert.NotEmpty(t, entry.CreatedAt)
}

func TestDatabase_GetCurrent_Idempotent(t *testing.T) {
	db := testDatabase(t, 50)

	userID, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	_, _, err = db.InsertEntry(userID, model.ContentTypeText, "stable", "{}", "A")
	require.NoError(t, err)

	first, err := db.GetCurrent(userID)
	require.NoError(t, err)
	second, err := db.GetCurrent(userID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDatabase_GetHistory_OrderAndClamp(t *testing.T) {
	db := testDatabase(t, 50)

	userID, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, _, err := db.InsertEntry(userID, model.ContentTypeText, fmt.Sprintf("p%d", i), "{}", "")
		require.NoError(t, err)
	}

	entries, err := db.GetHistory(userID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "p5", entries[0].Content)
	assert.Equal(t, "p4", entries[1].Content)

	// A non-positive limit is clamped up to 1
	entries, err = db.GetHistory(userID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// A limit beyond the retention cap is clamped down
	entries, err = db.GetHistory(userID, 10_000)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestDatabase_CrossUserIsolation(t *testing.T) {
	db := testDatabase(t, 50)

	aliceID, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)
	bobID, err := db.CreateUser("bob", "hunter2")
	require.NoError(t, err)

	_, aliceVersion, err := db.InsertEntry(aliceID, model.ContentTypeText, "alice's secret", "{}", "A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), aliceVersion)

	// Bob sees nothing of Alice's clipboard
	_, err = db.GetCurrent(bobID)
	assert.ErrorIs(t, err, model.ErrClipboardEmpty)

	bobLatest, err := db.GetLatestVersion(bobID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bobLatest)

	// Bob's own versions start at 1 regardless of Alice's activity
	_, bobVersion, err := db.InsertEntry(bobID, model.ContentTypeText, "bob's note", "{}", "B")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobVersion)

	history, err := db.GetHistory(bobID, 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "bob's note", history[0].Content)
}

func TestDatabase_MetadataStoredVerbatim(t *testing.T) {
	db := testDatabase(t, 50)

	userID, err := db.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	meta := `{"timestamp": "2026-01-02T03:04:05Z", "user_agent": "copyp/1.0", "nested": {"k": [1, 2]}}`
	_, _, err = db.InsertEntry(userID, model.ContentTypeText, "hi", meta, "A")
	require.NoError(t, err)

	entry, err := db.GetCurrent(userID)
	require.NoError(t, err)
	assert.Equal(t, meta, entry.Metadata)
}
