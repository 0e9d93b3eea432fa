// sqlite_ops.go provides SQLite connection management and the shared
// transaction helper used by every write path in this package.
//
// Design: WAL mode with a busy timeout balances concurrency and durability.
// WAL allows concurrent readers during writes, which matters because a save
// autosave loop, a comment read, and a publish can all be in flight for the
// same document at once.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"

	// Register sqlite driver.
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite with WAL mode for concurrent
// access.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface compliance check.
var _ Store = (*SQLiteStore)(nil)

// Open opens the SQLite database file at path and returns a configured
// SQLiteStore. The caller should call Close on the returned store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	// NORMAL is safe against corruption under WAL; FULL would fsync every
	// commit, which is unnecessary for a document store backed by a
	// transactional audit trail that callers can reconcile after a crash.
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting synchronous mode: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Init creates tables and indexes if they don't exist. Safe to call multiple
// times.
func (s *SQLiteStore) Init() error {
	return execSchema(s.db)
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for components needing custom
// queries beyond this package's surface.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Checkpoint flushes the WAL into the main database file.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	return err
}

// Tx executes fn within a database transaction, handling
// Begin/Commit/Rollback automatically. This is the sole mechanism by which
// mutations in this package become atomic: every exported write method in
// this package is either a single statement or wrapped in Tx.
//
// The defer Rollback pattern is safe because Rollback on an already
// committed transaction is a no-op:
//   - fn returns an error -> Rollback undoes partial changes
//   - fn panics -> Rollback runs via defer
//   - Commit fails -> Rollback runs (no-op if nothing to undo)
//   - Commit succeeds -> Rollback is a no-op
//
// An attempt that fails because SQLite's single writer was held by another
// connection (SQLITE_BUSY / "database is locked", surfaced despite the
// busy_timeout pragma when contention outlasts it) is retried exactly once,
// whether the busy error came from begin, commit or a statement inside fn.
// Every other error - including ErrAlreadyExists from a lost partial-unique
// race - is returned without a retry.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := s.runTx(ctx, fn)
	if err != nil && isBusyError(err) {
		err = s.runTx(ctx, fn)
	}
	return err
}

func (s *SQLiteStore) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// isBusyError reports whether err reflects SQLite's writer lock being held
// by another connection rather than an application-level rejection.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// genID returns a new globally-unique entity identifier (documents,
// versions, comments, attachments, audit entries, principals).
func genID() string {
	return uuid.NewString()
}

// genToken creates a short, unguessable opaque token (160 random bits,
// lowercase base32). Nothing in this package calls it: edit-lock tokens
// come from internal/lock and session tokens from internal/auth, which
// build theirs the same way.
func genToken() (string, error) {
	b := make([]byte, 20) // 160 bits
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)), nil
}
