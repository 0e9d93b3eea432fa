// version.go implements document version persistence: creation, retrieval,
// the Effective/Draft uniqueness lookups the lifecycle state machine relies
// on, and the generic field update used by every transition (spec.md §3,
// §4.3, §4.5).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *SQLiteStore) CreateVersion(ctx context.Context, tx *sql.Tx, v *DocumentVersion) error {
	if v.ID == "" {
		v.ID = genID()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO document_versions (
			id, document_id, version_number, version_string, status, content, content_hash,
			change_summary, change_type, change_reason, parent_version_id, is_latest, replaced_by,
			lock_version, submitted_at, submitted_by, reviewed_at, reviewed_by, approved_at, approved_by,
			rejected_at, rejected_by, published_at, published_by, archived_at, archived_by,
			effective_at, obsolete_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.DocumentID, v.VersionNumber, v.VersionString, string(v.Status), v.Content, v.ContentHash,
		v.ChangeSummary, changeTypePtr(v.ChangeType), v.ChangeReason, v.ParentVersionID, boolToInt(v.IsLatest), v.ReplacedBy,
		v.LockVersion, v.SubmittedAt, v.SubmittedBy, v.ReviewedAt, v.ReviewedBy, v.ApprovedAt, v.ApprovedBy,
		v.RejectedAt, v.RejectedBy, v.PublishedAt, v.PublishedBy, v.ArchivedAt, v.ArchivedBy,
		v.EffectiveAt, v.ObsoleteAt, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if isUniqueConstraint(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetVersion(ctx context.Context, id string) (*DocumentVersion, error) {
	row := s.db.QueryRowContext(ctx, versionSelect+` WHERE id = ?`, id)
	return scanVersionRow(row)
}

func (s *SQLiteStore) GetVersionTx(ctx context.Context, tx *sql.Tx, id string) (*DocumentVersion, error) {
	row := tx.QueryRowContext(ctx, versionSelect+` WHERE id = ?`, id)
	return scanVersionRow(row)
}

// GetVersionForUpdate re-reads the version inside the transaction that is
// about to mutate it, so the caller observes the latest committed state
// before deciding whether a transition is legal (spec.md §5's
// "transactional re-check before commit").
func (s *SQLiteStore) GetVersionForUpdate(ctx context.Context, tx *sql.Tx, id string) (*DocumentVersion, error) {
	return s.GetVersionTx(ctx, tx, id)
}

func (s *SQLiteStore) GetEffectiveVersion(ctx context.Context, tx *sql.Tx, documentID string) (*DocumentVersion, error) {
	row := tx.QueryRowContext(ctx, versionSelect+` WHERE document_id = ? AND status = 'Effective'`, documentID)
	v, err := scanVersionRow(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (s *SQLiteStore) GetDraftVersion(ctx context.Context, tx *sql.Tx, documentID string) (*DocumentVersion, error) {
	row := tx.QueryRowContext(ctx, versionSelect+` WHERE document_id = ? AND status = 'Draft'`, documentID)
	v, err := scanVersionRow(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (s *SQLiteStore) ListVersions(ctx context.Context, documentID string) ([]DocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx, versionSelect+` WHERE document_id = ? ORDER BY version_number DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MaxVersionNumber(ctx context.Context, tx *sql.Tx, documentID string) (int, error) {
	var max int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version_number), 0) FROM document_versions WHERE document_id = ?`, documentID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max version number: %w", err)
	}
	return max, nil
}

// UpdateVersion persists every mutable field of v. Every lifecycle
// transition and content save goes through this single write path. It does
// not check Immutable() itself; the status preconditions in
// internal/lifecycle decide which writes reach it.
func (s *SQLiteStore) UpdateVersion(ctx context.Context, tx *sql.Tx, v *DocumentVersion) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE document_versions SET
			version_string = ?, status = ?, content = ?, content_hash = ?,
			change_summary = ?, change_type = ?, change_reason = ?,
			is_latest = ?, replaced_by = ?, lock_version = ?,
			submitted_at = ?, submitted_by = ?, reviewed_at = ?, reviewed_by = ?,
			approved_at = ?, approved_by = ?, rejected_at = ?, rejected_by = ?,
			published_at = ?, published_by = ?, archived_at = ?, archived_by = ?,
			effective_at = ?, obsolete_at = ?, updated_at = ?
		WHERE id = ?`,
		v.VersionString, string(v.Status), v.Content, v.ContentHash,
		v.ChangeSummary, changeTypePtr(v.ChangeType), v.ChangeReason,
		boolToInt(v.IsLatest), v.ReplacedBy, v.LockVersion,
		v.SubmittedAt, v.SubmittedBy, v.ReviewedAt, v.ReviewedBy,
		v.ApprovedAt, v.ApprovedBy, v.RejectedAt, v.RejectedBy,
		v.PublishedAt, v.PublishedBy, v.ArchivedAt, v.ArchivedBy,
		v.EffectiveAt, v.ObsoleteAt, v.UpdatedAt,
		v.ID)
	if err != nil {
		if isUniqueConstraint(err) {
			// A concurrent writer committed first and already holds the
			// partial-unique slot (one Effective / one Draft per document)
			// this update was trying to move v into.
			return ErrAlreadyExists
		}
		return fmt.Errorf("update version: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) ListDocumentsByStatus(ctx context.Context, status VersionStatus) ([]DocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx, versionSelect+` WHERE status = ? ORDER BY updated_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list versions by status: %w", err)
	}
	defer rows.Close()

	var out []DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

const versionSelect = `
	SELECT id, document_id, version_number, version_string, status, content, content_hash,
	       change_summary, change_type, change_reason, parent_version_id, is_latest, replaced_by,
	       lock_version, submitted_at, submitted_by, reviewed_at, reviewed_by, approved_at, approved_by,
	       rejected_at, rejected_by, published_at, published_by, archived_at, archived_by,
	       effective_at, obsolete_at, created_at, updated_at
	FROM document_versions`

func scanVersionRow(row *sql.Row) (*DocumentVersion, error) {
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	return v, nil
}

func scanVersion(sc rowScanner) (*DocumentVersion, error) {
	var v DocumentVersion
	var status string
	var changeType, changeReason, parentVersionID, replacedBy sql.NullString
	var submittedAt, reviewedAt, approvedAt, rejectedAt, publishedAt, archivedAt, effectiveAt, obsoleteAt sql.NullInt64
	var submittedBy, reviewedBy, approvedBy, rejectedBy, publishedBy, archivedBy sql.NullString
	var isLatest int

	err := sc.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.VersionString, &status, &v.Content, &v.ContentHash,
		&v.ChangeSummary, &changeType, &changeReason, &parentVersionID, &isLatest, &replacedBy,
		&v.LockVersion, &submittedAt, &submittedBy, &reviewedAt, &reviewedBy, &approvedAt, &approvedBy,
		&rejectedAt, &rejectedBy, &publishedAt, &publishedBy, &archivedAt, &archivedBy,
		&effectiveAt, &obsoleteAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}

	v.Status = VersionStatus(status)
	v.IsLatest = isLatest != 0
	if changeType.Valid {
		ct := ChangeType(changeType.String)
		v.ChangeType = &ct
	}
	if changeReason.Valid {
		cr := changeReason.String
		v.ChangeReason = &cr
	}
	if parentVersionID.Valid {
		pv := parentVersionID.String
		v.ParentVersionID = &pv
	}
	if replacedBy.Valid {
		rb := replacedBy.String
		v.ReplacedBy = &rb
	}
	v.SubmittedAt = nullIntPtr(submittedAt)
	v.ReviewedAt = nullIntPtr(reviewedAt)
	v.ApprovedAt = nullIntPtr(approvedAt)
	v.RejectedAt = nullIntPtr(rejectedAt)
	v.PublishedAt = nullIntPtr(publishedAt)
	v.ArchivedAt = nullIntPtr(archivedAt)
	v.EffectiveAt = nullIntPtr(effectiveAt)
	v.ObsoleteAt = nullIntPtr(obsoleteAt)
	v.SubmittedBy = nullStrPtr(submittedBy)
	v.ReviewedBy = nullStrPtr(reviewedBy)
	v.ApprovedBy = nullStrPtr(approvedBy)
	v.RejectedBy = nullStrPtr(rejectedBy)
	v.PublishedBy = nullStrPtr(publishedBy)
	v.ArchivedBy = nullStrPtr(archivedBy)
	return &v, nil
}

func changeTypePtr(ct *ChangeType) *string {
	if ct == nil {
		return nil
	}
	s := string(*ct)
	return &s
}

func nullIntPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullStrPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
