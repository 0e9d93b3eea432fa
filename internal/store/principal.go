// principal.go implements principal persistence: identity, credential hash,
// role assignments, and single-session state (spec.md §3, §4.2).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

func (s *SQLiteStore) CreatePrincipal(ctx context.Context, p *Principal) error {
	if p.ID == "" {
		p.ID = genID()
	}
	return s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO principals (id, username, credential_hash, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Username, p.CredentialHash, boolToInt(p.Active), p.CreatedAt, p.UpdatedAt)
		if err != nil {
			if isUniqueConstraint(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("insert principal: %w", err)
		}
		for _, r := range p.Roles {
			if _, err := tx.ExecContext(ctx, `INSERT INTO principal_roles (principal_id, role) VALUES (?, ?)`, p.ID, string(r)); err != nil {
				return fmt.Errorf("insert role %s: %w", r, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetPrincipalByID(ctx context.Context, id string) (*Principal, error) {
	return s.getPrincipal(ctx, `id = ?`, id)
}

func (s *SQLiteStore) GetPrincipalByUsername(ctx context.Context, username string) (*Principal, error) {
	return s.getPrincipal(ctx, `username = ?`, username)
}

func (s *SQLiteStore) getPrincipal(ctx context.Context, where string, arg string) (*Principal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, credential_hash, active, active_session_token,
		       session_issued_at, session_expires_at, session_last_activity,
		       created_at, updated_at
		FROM principals WHERE `+where, arg)

	p, err := scanPrincipal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan principal: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT role FROM principal_roles WHERE principal_id = ?`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		p.Roles = append(p.Roles, Role(r))
	}
	return p, rows.Err()
}

func (s *SQLiteStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE principals SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) SetSession(ctx context.Context, id string, token *string, issuedAt, expiresAt, lastActivity *int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE principals
		SET active_session_token = ?, session_issued_at = ?, session_expires_at = ?, session_last_activity = ?
		WHERE id = ?`,
		token, issuedAt, expiresAt, lastActivity, id)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) TouchSessionActivity(ctx context.Context, id string, at int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE principals SET session_last_activity = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("touch session activity: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) ListPrincipalsByRole(ctx context.Context, role Role) ([]Principal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.username, p.credential_hash, p.active, p.active_session_token,
		       p.session_issued_at, p.session_expires_at, p.session_last_activity,
		       p.created_at, p.updated_at
		FROM principals p
		JOIN principal_roles pr ON pr.principal_id = p.id
		WHERE pr.role = ? AND p.active = 1
		ORDER BY p.username`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list principals by role: %w", err)
	}
	defer rows.Close()

	var out []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan principal: %w", err)
		}
		p.Roles = []Role{role}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPrincipal(sc rowScanner) (*Principal, error) {
	var p Principal
	var active int
	var token sql.NullString
	var issuedAt, expiresAt, lastActivity sql.NullInt64

	err := sc.Scan(&p.ID, &p.Username, &p.CredentialHash, &active, &token,
		&issuedAt, &expiresAt, &lastActivity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Active = active != 0
	if token.Valid {
		v := token.String
		p.ActiveSessionToken = &v
	}
	if issuedAt.Valid {
		v := issuedAt.Int64
		p.SessionIssuedAt = &v
	}
	if expiresAt.Valid {
		v := expiresAt.Int64
		p.SessionExpiresAt = &v
	}
	if lastActivity.Valid {
		v := lastActivity.Int64
		p.SessionLastActivity = &v
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
