// attachment.go implements attachment persistence for internal/attachment:
// content-hash dedup lookup, creation, listing by parent, and soft delete
// (spec.md §3, §4.8).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindAttachmentByHash looks up an existing, non-deleted attachment with the
// same content hash under the same parent, enabling upload dedup.
// parentKind is "document" or "version".
func (s *SQLiteStore) FindAttachmentByHash(ctx context.Context, parentKind, parentID, sha256 string) (*Attachment, error) {
	col := parentColumn(parentKind)
	row := s.db.QueryRowContext(ctx, attachmentSelect+` WHERE `+col+` = ? AND sha256 = ? AND deleted_at IS NULL`, parentID, sha256)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan attachment: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) CreateAttachment(ctx context.Context, a *Attachment) error {
	if a.ID == "" {
		a.ID = genID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, filename, sha256, byte_size, mime_type, uploader_id, document_id, version_id, deleted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Filename, a.SHA256, a.ByteSize, a.MimeType, a.UploaderID, a.DocumentID, a.VersionID, a.DeletedAt, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAttachment(ctx context.Context, id string) (*Attachment, error) {
	row := s.db.QueryRowContext(ctx, attachmentSelect+` WHERE id = ?`, id)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan attachment: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) ListAttachments(ctx context.Context, parentKind, parentID string) ([]Attachment, error) {
	col := parentColumn(parentKind)
	rows, err := s.db.QueryContext(ctx, attachmentSelect+` WHERE `+col+` = ? AND deleted_at IS NULL ORDER BY created_at`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SoftDeleteAttachment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE attachments SET deleted_at = unixepoch() WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete attachment: %w", err)
	}
	return requireRow(res)
}

func parentColumn(parentKind string) string {
	if parentKind == "version" {
		return "version_id"
	}
	return "document_id"
}

const attachmentSelect = `
	SELECT id, filename, sha256, byte_size, mime_type, uploader_id, document_id, version_id, deleted_at, created_at
	FROM attachments`

func scanAttachment(sc rowScanner) (*Attachment, error) {
	var a Attachment
	var documentID, versionID sql.NullString
	var deletedAt sql.NullInt64

	err := sc.Scan(&a.ID, &a.Filename, &a.SHA256, &a.ByteSize, &a.MimeType, &a.UploaderID,
		&documentID, &versionID, &deletedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.DocumentID = nullStrPtr(documentID)
	a.VersionID = nullStrPtr(versionID)
	a.DeletedAt = nullIntPtr(deletedAt)
	return &a, nil
}
