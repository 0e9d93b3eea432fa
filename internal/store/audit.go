// audit.go implements the append-only audit log's persistence layer. The
// sole writer is internal/audit, which calls AppendAudit inside the caller's
// transaction so the audit row commits or rolls back with the mutation it
// describes (spec.md §4.1, §9). No method in this package updates or
// deletes a row here.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

func (s *SQLiteStore) AppendAudit(ctx context.Context, tx *sql.Tx, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = genID()
	}
	var detail *string
	if len(e.Detail) > 0 {
		b, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		s := string(b)
		detail = &s
	}

	exec := func(ex interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	}) error {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO audit_entries (id, principal_id, username, action, entity_kind, entity_id,
			                            description, detail, esignature, ip, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.PrincipalID, e.Username, e.Action, e.EntityKind, e.EntityID,
			e.Description, detail, boolToInt(e.ESignature), e.IP, e.UserAgent, e.CreatedAt)
		return err
	}

	var err error
	if tx != nil {
		err = exec(tx)
	} else {
		err = exec(s.db)
	}
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAuditEntries(ctx context.Context, f AuditFilter) ([]AuditEntry, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if f.PrincipalID != "" {
		where = append(where, "principal_id = ?")
		args = append(args, f.PrincipalID)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	if f.EntityKind != "" {
		where = append(where, "entity_kind = ?")
		args = append(args, f.EntityKind)
	}
	if f.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *f.Until)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, principal_id, username, action, entity_kind, entity_id, description,
		       detail, esignature, ip, user_agent, created_at
		FROM audit_entries WHERE ` + whereClause + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func scanAuditEntry(sc rowScanner) (*AuditEntry, error) {
	var e AuditEntry
	var principalID, detail, ip, userAgent sql.NullString
	var esig int

	err := sc.Scan(&e.ID, &principalID, &e.Username, &e.Action, &e.EntityKind, &e.EntityID,
		&e.Description, &detail, &esig, &ip, &userAgent, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.PrincipalID = nullStrPtr(principalID)
	e.IP = nullStrPtr(ip)
	e.UserAgent = nullStrPtr(userAgent)
	e.ESignature = esig != 0
	if detail.Valid {
		var m map[string]any
		if err := json.Unmarshal([]byte(detail.String), &m); err == nil {
			e.Detail = m
		}
	}
	return &e, nil
}
