// document.go implements document metadata persistence: creation, listing,
// metadata patches, current-version pointer maintenance, soft delete, and
// the per-department-per-day document-number counter (spec.md §3, §6).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

func (s *SQLiteStore) CreateDocument(ctx context.Context, tx *sql.Tx, d *Document) error {
	if d.ID == "" {
		d.ID = genID()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, document_number, title, description, department, owner_id, current_version_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DocumentNumber, d.Title, d.Description, d.Department, d.OwnerID, d.CurrentVersionID, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueConstraint(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert document: %w", err)
	}
	for _, tag := range d.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO document_tags (document_id, tag) VALUES (?, ?)`, d.ID, tag); err != nil {
			return fmt.Errorf("insert tag %q: %w", tag, err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.getDocument(ctx, `id = ?`, id)
}

func (s *SQLiteStore) GetDocumentByNumber(ctx context.Context, number string) (*Document, error) {
	return s.getDocument(ctx, `document_number = ?`, number)
}

func (s *SQLiteStore) getDocument(ctx context.Context, where, arg string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_number, title, description, department, owner_id,
		       current_version_id, created_at, updated_at, deleted_at
		FROM documents WHERE `+where, arg)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if err := s.loadTags(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *SQLiteStore) loadTags(ctx context.Context, d *Document) error {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM document_tags WHERE document_id = ? ORDER BY tag`, d.ID)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		d.Tags = append(d.Tags, tag)
	}
	return rows.Err()
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, f DocumentFilter) ([]Document, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if f.Department != "" {
		where = append(where, "department = ?")
		args = append(args, f.Department)
	}
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Tag != "" {
		where = append(where, "id IN (SELECT document_id FROM document_tags WHERE tag = ?)")
		args = append(args, f.Tag)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT id, document_number, title, description, department, owner_id,
		       current_version_id, created_at, updated_at, deleted_at
		FROM documents WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, whereClause)
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		if err := s.loadTags(ctx, d); err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func (s *SQLiteStore) UpdateDocumentMetadata(ctx context.Context, id string, patch DocumentPatch) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		sets := []string{"updated_at = updated_at"}
		args := []any{}
		if patch.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *patch.Title)
		}
		if patch.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, *patch.Description)
		}
		if patch.Department != nil {
			sets = append(sets, "department = ?")
			args = append(args, *patch.Department)
		}
		args = append(args, id)
		res, err := tx.ExecContext(ctx, `UPDATE documents SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`, args...)
		if err != nil {
			return fmt.Errorf("update document metadata: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		if patch.Tags != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = ?`, id); err != nil {
				return fmt.Errorf("clear tags: %w", err)
			}
			for _, tag := range *patch.Tags {
				if _, err := tx.ExecContext(ctx, `INSERT INTO document_tags (document_id, tag) VALUES (?, ?)`, id, tag); err != nil {
					return fmt.Errorf("insert tag %q: %w", tag, err)
				}
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SetCurrentVersion(ctx context.Context, tx *sql.Tx, documentID string, versionID *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE documents SET current_version_id = ? WHERE id = ?`, versionID, documentID)
	if err != nil {
		return fmt.Errorf("set current version: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) SoftDeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET deleted_at = unixepoch() WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	return requireRow(res)
}

// NextDocumentNumber returns the next per-department, per-day monotonic
// counter value, incrementing it transactionally to prevent collisions
// between concurrent CreateDocument calls (spec.md §6).
func (s *SQLiteStore) NextDocumentNumber(ctx context.Context, tx *sql.Tx, department, day string) (int, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO document_number_counters (department, day, counter) VALUES (?, ?, 1)
		ON CONFLICT(department, day) DO UPDATE SET counter = counter + 1`,
		department, day)
	if err != nil {
		return 0, fmt.Errorf("increment document counter: %w", err)
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT counter FROM document_number_counters WHERE department = ? AND day = ?`, department, day).Scan(&n); err != nil {
		return 0, fmt.Errorf("read document counter: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc rowScanner) (*Document, error) {
	var d Document
	var desc sql.NullString
	var currentVersion sql.NullString
	var deletedAt sql.NullInt64

	err := sc.Scan(&d.ID, &d.DocumentNumber, &d.Title, &desc, &d.Department, &d.OwnerID,
		&currentVersion, &d.CreatedAt, &d.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d.Description = desc.String
	}
	if currentVersion.Valid {
		v := currentVersion.String
		d.CurrentVersionID = &v
	}
	if deletedAt.Valid {
		v := deletedAt.Int64
		d.DeletedAt = &v
	}
	return &d, nil
}
