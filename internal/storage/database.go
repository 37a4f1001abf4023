// Package storage provides the database implementation of the Store
// interface. This implementation supports SQLite, PostgreSQL, and MySQL
// through Go's database/sql package, providing a consistent API across
// all three databases.
//
// Three tables hold all state:
// - users: account rows with bcrypt password hashes
// - clipboard_entries: versioned clipboard history per user
// - user_metadata: per-user integer registers (the version counter)
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	// Database drivers - imported for side effects (driver registration)
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"golang.org/x/crypto/bcrypt"

	"github.com/liskl/copypasta/internal/config"
	"github.com/liskl/copypasta/internal/model"
)

// Database implements the Store interface using SQL databases.
// Supports SQLite, PostgreSQL, and MySQL.
type Database struct {
	db           *sql.DB
	driver       string // "sqlite3", "postgres", or "mysql"
	historyLimit int
	mu           sync.RWMutex
}

// Dummy bcrypt hash compared against when a login names an unknown user,
// so verification cost does not reveal whether the user exists.
var (
	dummyOnce sync.Once
	dummyHash []byte
)

func dummyPasswordHash() []byte {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("copypasta-timing-pad"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// NewDatabase creates a new database storage backend.
// The database tables are created automatically if they don't exist.
func NewDatabase(cfg *config.Config) (*Database, error) {
	driver := cfg.Model.Driver
	dsn := cfg.Model.DSN

	// For PostgreSQL, the driver is "postgres" but DSN might use "postgresql://"
	if driver == "postgres" && strings.HasPrefix(dsn, "postgresql://") {
		dsn = strings.Replace(dsn, "postgresql://", "postgres://", 1)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	d := &Database{
		db:           db,
		driver:       driver,
		historyLimit: cfg.Clipboard.HistoryLimit,
	}

	// Create tables if they don't exist
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return d, nil
}

// createTables creates the necessary database tables.
func (d *Database) createTables() error {
	textType := d.textType()

	// Create users table. Usernames are unique; MySQL needs a bounded
	// VARCHAR for the unique constraint.
	usersSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			id %s,
			username %s NOT NULL UNIQUE,
			password_hash %s NOT NULL,
			created_at %s
		)
	`, d.primaryKey(), d.usernameType(), textType, d.timestampType())

	if _, err := d.db.Exec(usersSQL); err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Create clipboard_entries table
	entriesSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS clipboard_entries (
			id %s,
			user_id BIGINT NOT NULL,
			content_type %s NOT NULL,
			content %s NOT NULL,
			metadata %s,
			created_at %s,
			version BIGINT NOT NULL,
			client_id %s
		)
	`, d.primaryKey(), d.usernameType(), textType, textType, d.timestampType(), d.usernameType())

	if _, err := d.db.Exec(entriesSQL); err != nil {
		return fmt.Errorf("creating clipboard_entries table: %w", err)
	}

	// Index on (user_id, version DESC) for GetCurrent and history reads.
	// Unique, because no two entries for a user may share a version.
	indexSQL := d.createIndexSQL("ux_entries_user_version", "clipboard_entries", "user_id, version DESC")
	if _, err := d.db.Exec(indexSQL); err != nil {
		// Ignore error if index already exists (MySQL has no IF NOT EXISTS here)
		if !strings.Contains(err.Error(), "already exists") &&
			!strings.Contains(err.Error(), "duplicate") &&
			!strings.Contains(err.Error(), "Duplicate") {
			return fmt.Errorf("creating entries index: %w", err)
		}
	}

	// Create user_metadata table for per-user integer registers
	metadataSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS user_metadata (
			user_id BIGINT NOT NULL,
			%s VARCHAR(64) NOT NULL,
			value BIGINT NOT NULL,
			PRIMARY KEY (user_id, %s)
		)
	`, d.keyColumn(), d.keyColumn())

	if _, err := d.db.Exec(metadataSQL); err != nil {
		return fmt.Errorf("creating user_metadata table: %w", err)
	}

	return nil
}

// primaryKey returns the auto-increment primary key clause for the driver.
func (d *Database) primaryKey() string {
	switch d.driver {
	case "postgres":
		return "BIGSERIAL PRIMARY KEY"
	case "mysql":
		return "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	default: // sqlite3
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// textType returns the appropriate TEXT type for the database driver.
func (d *Database) textType() string {
	switch d.driver {
	case "mysql":
		return "MEDIUMTEXT" // Up to 16MB
	default:
		return "TEXT"
	}
}

// usernameType returns a text type usable in unique constraints.
// MySQL cannot build a unique index over unbounded TEXT.
func (d *Database) usernameType() string {
	switch d.driver {
	case "mysql":
		return "VARCHAR(191)"
	default:
		return "TEXT"
	}
}

// timestampType returns the column type for RFC3339 timestamp strings.
func (d *Database) timestampType() string {
	switch d.driver {
	case "mysql":
		return "VARCHAR(64)"
	default:
		return "TEXT"
	}
}

// keyColumn returns the quoted name of the user_metadata key column.
// KEY is a reserved word in MySQL.
func (d *Database) keyColumn() string {
	if d.driver == "mysql" {
		return "`key`"
	}
	return "key"
}

// createIndexSQL returns database-specific CREATE INDEX syntax.
func (d *Database) createIndexSQL(name, table, columns string) string {
	switch d.driver {
	case "mysql":
		return fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", name, table, columns)
	default:
		return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, columns)
	}
}

// placeholder returns the appropriate placeholder for the database.
// PostgreSQL uses $1, $2, etc. Others use ?.
func (d *Database) placeholder(n int) string {
	if d.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// placeholders returns a string of comma-separated placeholders.
func (d *Database) placeholders(count int) string {
	if d.driver == "postgres" {
		parts := make([]string, count)
		for i := 0; i < count; i++ {
			parts[i] = fmt.Sprintf("$%d", i+1)
		}
		return strings.Join(parts, ", ")
	}
	return strings.Repeat("?, ", count-1) + "?"
}

// writeLock serializes writers on SQLite, which allows only one writer
// at a time and would otherwise surface SQLITE_BUSY. Server databases
// handle concurrent writers themselves, so writers for different users
// must not serialize against each other there.
func (d *Database) writeLock() func() {
	if d.driver != "sqlite3" {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

// readLock keeps SQLite readers out of the writer's critical section.
func (d *Database) readLock() func() {
	if d.driver != "sqlite3" {
		return func() {}
	}
	d.mu.RLock()
	return d.mu.RUnlock
}

// isDuplicateErr reports whether err is a unique-constraint violation.
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "Duplicate")
}

// CreateUser registers a new user with a bcrypt-hashed password.
func (d *Database) CreateUser(username, password string) (int64, error) {
	if err := model.ValidateCredentials(username, password); err != nil {
		return 0, err
	}
	username = model.NormalizeUsername(username)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hashing password: %w", err)
	}

	defer d.writeLock()()

	createdAt := time.Now().UTC().Format(time.RFC3339)

	// The UNIQUE constraint on username arbitrates concurrent
	// registrations: exactly one insert wins.
	if d.driver == "postgres" {
		var id int64
		query := "INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id"
		err := d.db.QueryRow(query, username, string(hash), createdAt).Scan(&id)
		if err != nil {
			if isDuplicateErr(err) {
				return 0, model.ErrUsernameTaken
			}
			return 0, fmt.Errorf("inserting user: %w", err)
		}
		return id, nil
	}

	query := fmt.Sprintf(
		"INSERT INTO users (username, password_hash, created_at) VALUES (%s)",
		d.placeholders(3),
	)
	result, err := d.db.Exec(query, username, string(hash), createdAt)
	if err != nil {
		if isDuplicateErr(err) {
			return 0, model.ErrUsernameTaken
		}
		return 0, fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading user id: %w", err)
	}
	return id, nil
}

// VerifyCredentials checks a username/password pair against the stored
// bcrypt hash. When the user does not exist a dummy verification runs so
// that response timing does not leak account existence.
func (d *Database) VerifyCredentials(username, password string) (int64, error) {
	username = model.NormalizeUsername(username)

	defer d.readLock()()

	query := fmt.Sprintf(
		"SELECT id, password_hash FROM users WHERE username = %s",
		d.placeholder(1),
	)

	var id int64
	var hash string
	err := d.db.QueryRow(query, username).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		// Burn the same bcrypt cost as a real verification
		bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(password))
		return 0, model.ErrAuthFailed
	}
	if err != nil {
		return 0, fmt.Errorf("querying user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return 0, model.ErrAuthFailed
	}
	return id, nil
}

// InsertEntry stores a new clipboard entry in a single transaction:
// the user's version counter is incremented (created on first paste),
// the row inserted with the new version, and entries older than the
// history limit deleted. The transaction boundary is what keeps the
// history-bound invariant intact across crashes.
func (d *Database) InsertEntry(userID int64, contentType, content, metadata, clientID string) (int64, int64, error) {
	defer d.writeLock()()

	tx, err := d.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	version, err := d.bumpVersionCounter(tx, userID)
	if err != nil {
		return 0, 0, err
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)

	var entryID int64
	if d.driver == "postgres" {
		query := `INSERT INTO clipboard_entries
			(user_id, content_type, content, metadata, created_at, version, client_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
		err = tx.QueryRow(query, userID, contentType, content, metadata, createdAt, version, clientID).Scan(&entryID)
		if err != nil {
			return 0, 0, fmt.Errorf("inserting entry: %w", err)
		}
	} else {
		query := fmt.Sprintf(`INSERT INTO clipboard_entries
			(user_id, content_type, content, metadata, created_at, version, client_id)
			VALUES (%s)`, d.placeholders(7))
		result, err := tx.Exec(query, userID, contentType, content, metadata, createdAt, version, clientID)
		if err != nil {
			return 0, 0, fmt.Errorf("inserting entry: %w", err)
		}
		entryID, err = result.LastInsertId()
		if err != nil {
			return 0, 0, fmt.Errorf("reading entry id: %w", err)
		}
	}

	// Evict everything beyond the history limit. Versions are dense per
	// user, so rank-from-newest is just a version cutoff.
	evictQuery := fmt.Sprintf(
		"DELETE FROM clipboard_entries WHERE user_id = %s AND version <= %s",
		d.placeholder(1), d.placeholder(2),
	)
	if _, err := tx.Exec(evictQuery, userID, version-int64(d.historyLimit)); err != nil {
		return 0, 0, fmt.Errorf("evicting old entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing entry: %w", err)
	}
	return entryID, version, nil
}

// bumpVersionCounter atomically increments the per-user version counter
// inside tx, creating the register on first use, and returns the new
// value. The upsert row-locks the register on server databases, so
// concurrent inserts for the same user serialize in submission order.
func (d *Database) bumpVersionCounter(tx *sql.Tx, userID int64) (int64, error) {
	var upsert string
	switch d.driver {
	case "postgres":
		upsert = fmt.Sprintf(`INSERT INTO user_metadata (user_id, %s, value) VALUES ($1, $2, 1)
			ON CONFLICT (user_id, %s) DO UPDATE SET value = user_metadata.value + 1`,
			d.keyColumn(), d.keyColumn())
	case "mysql":
		upsert = fmt.Sprintf(`INSERT INTO user_metadata (user_id, %s, value) VALUES (?, ?, 1)
			ON DUPLICATE KEY UPDATE value = value + 1`, d.keyColumn())
	default: // sqlite3
		upsert = fmt.Sprintf(`INSERT INTO user_metadata (user_id, %s, value) VALUES (?, ?, 1)
			ON CONFLICT (user_id, %s) DO UPDATE SET value = value + 1`,
			d.keyColumn(), d.keyColumn())
	}

	if _, err := tx.Exec(upsert, userID, VersionCounterKey); err != nil {
		return 0, fmt.Errorf("bumping version counter: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT value FROM user_metadata WHERE user_id = %s AND %s = %s",
		d.placeholder(1), d.keyColumn(), d.placeholder(2),
	)
	var version int64
	if err := tx.QueryRow(query, userID, VersionCounterKey).Scan(&version); err != nil {
		return 0, fmt.Errorf("reading version counter: %w", err)
	}
	return version, nil
}

// entryColumns is the SELECT list shared by entry reads.
const entryColumns = "id, user_id, content_type, content, metadata, created_at, version, client_id"

// scanEntry reads one entry row.
func scanEntry(row interface{ Scan(...interface{}) error }) (*model.Entry, error) {
	var e model.Entry
	var metadata, createdAt, clientID sql.NullString

	err := row.Scan(&e.ID, &e.UserID, &e.ContentType, &e.Content, &metadata, &createdAt, &e.Version, &clientID)
	if err != nil {
		return nil, err
	}

	e.Metadata = metadata.String
	e.CreatedAt = createdAt.String
	e.ClientID = clientID.String
	return &e, nil
}

// GetCurrent returns the entry with the greatest version for a user.
func (d *Database) GetCurrent(userID int64) (*model.Entry, error) {
	defer d.readLock()()

	query := fmt.Sprintf(
		"SELECT %s FROM clipboard_entries WHERE user_id = %s ORDER BY version DESC LIMIT 1",
		entryColumns, d.placeholder(1),
	)

	entry, err := scanEntry(d.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, model.ErrClipboardEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("querying current entry: %w", err)
	}
	return entry, nil
}

// GetHistory returns up to limit entries newest-first.
// limit is clamped to [1, history limit].
func (d *Database) GetHistory(userID int64, limit int) ([]*model.Entry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > d.historyLimit {
		limit = d.historyLimit
	}

	defer d.readLock()()

	query := fmt.Sprintf(
		"SELECT %s FROM clipboard_entries WHERE user_id = %s ORDER BY version DESC LIMIT %s",
		entryColumns, d.placeholder(1), d.placeholder(2),
	)

	rows, err := d.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []*model.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// GetLatestVersion returns the last issued version for a user.
// Reads the version counter register, which is the source of truth for
// version ordering; returns 0 if the user has never pasted.
func (d *Database) GetLatestVersion(userID int64) (int64, error) {
	defer d.readLock()()

	query := fmt.Sprintf(
		"SELECT value FROM user_metadata WHERE user_id = %s AND %s = %s",
		d.placeholder(1), d.keyColumn(), d.placeholder(2),
	)

	var version int64
	err := d.db.QueryRow(query, userID, VersionCounterKey).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying latest version: %w", err)
	}
	return version, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
