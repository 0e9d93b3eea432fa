// lock.go implements edit-lock row persistence for internal/lock. Any row
// with expires_at <= now is treated as nonexistent by every read here; a
// housekeeping pass (SweepExpiredLocks) may delete such rows but correctness
// never depends on it running (spec.md §4.4, §5).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *SQLiteStore) GetActiveLock(ctx context.Context, tx *sql.Tx, versionID string, now int64) (*EditLock, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT version_id, token, holder_id, session_tag, acquired_at, expires_at, last_heartbeat
		FROM edit_locks WHERE version_id = ? AND expires_at > ?`, versionID, now)
	l, err := scanLock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan lock: %w", err)
	}
	return l, nil
}

// CreateLock inserts l, first clearing any row for the same version that is
// either stale (expires_at <= now) or already held by l's own token (a
// holder refreshing its session tag in place). A row for a *different*,
// still-live token is left untouched, so the INSERT below collides with it
// on the version_id primary key: the race loser gets a genuine UNIQUE
// constraint violation, translated to ErrAlreadyExists, rather than silently
// overwriting the winner's lock.
func (s *SQLiteStore) CreateLock(ctx context.Context, tx *sql.Tx, l *EditLock, now int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM edit_locks WHERE version_id = ? AND (expires_at <= ? OR token = ?)`,
		l.VersionID, now, l.Token); err != nil {
		return fmt.Errorf("clear stale lock: %w", err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO edit_locks (version_id, token, holder_id, session_tag, acquired_at, expires_at, last_heartbeat)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.VersionID, l.Token, l.HolderID, l.SessionTag, l.AcquiredAt, l.ExpiresAt, l.LastHeartbeat)
	if err != nil {
		if isUniqueConstraint(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert lock: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteLock(ctx context.Context, tx *sql.Tx, versionID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM edit_locks WHERE version_id = ?`, versionID)
	if err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateLockExpiry(ctx context.Context, tx *sql.Tx, versionID, token string, expiresAt, lastHeartbeat int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE edit_locks SET expires_at = ?, last_heartbeat = ?
		WHERE version_id = ? AND token = ?`, expiresAt, lastHeartbeat, versionID, token)
	if err != nil {
		return false, fmt.Errorf("update lock expiry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) SweepExpiredLocks(ctx context.Context, now int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edit_locks WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired locks: %w", err)
	}
	return res.RowsAffected()
}

func scanLock(sc rowScanner) (*EditLock, error) {
	var l EditLock
	var sessionTag sql.NullString
	err := sc.Scan(&l.VersionID, &l.Token, &l.HolderID, &sessionTag, &l.AcquiredAt, &l.ExpiresAt, &l.LastHeartbeat)
	if err != nil {
		return nil, err
	}
	if sessionTag.Valid {
		v := sessionTag.String
		l.SessionTag = &v
	}
	return &l, nil
}
