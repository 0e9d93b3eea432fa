// comment.go implements comment persistence for internal/comment. Comments
// are owned exclusively by a version and carry an advisory anchor: the
// selected substring is canonical, offsets and context are hints only
// (spec.md §3, §4.6).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *SQLiteStore) CreateComment(ctx context.Context, c *Comment) error {
	if c.ID == "" {
		c.ID = genID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, version_id, author_id, body, anchor_text, anchor_start, anchor_end,
		                       anchor_context, is_resolved, resolved_by, resolved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.VersionID, c.AuthorID, c.Body, c.AnchorText, c.AnchorStart, c.AnchorEnd,
		c.AnchorContext, boolToInt(c.IsResolved), c.ResolvedBy, c.ResolvedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetComment(ctx context.Context, id string) (*Comment, error) {
	row := s.db.QueryRowContext(ctx, commentSelect+` WHERE id = ?`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan comment: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) UpdateComment(ctx context.Context, c *Comment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE comments SET body = ?, is_resolved = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ?`,
		c.Body, boolToInt(c.IsResolved), c.ResolvedBy, c.ResolvedAt, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) ListComments(ctx context.Context, versionID string, includeResolved bool) ([]Comment, error) {
	query := commentSelect + ` WHERE version_id = ?`
	if !includeResolved {
		query += ` AND is_resolved = 0`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CountUnresolvedSince counts unresolved comments created on or after since,
// used by the task feed (C9) to derive an Author's draft priority from the
// latest review cycle's outstanding comments.
func (s *SQLiteStore) CountUnresolvedSince(ctx context.Context, versionID string, since int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM comments WHERE version_id = ? AND is_resolved = 0 AND created_at >= ?`,
		versionID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unresolved comments: %w", err)
	}
	return n, nil
}

const commentSelect = `
	SELECT id, version_id, author_id, body, anchor_text, anchor_start, anchor_end,
	       anchor_context, is_resolved, resolved_by, resolved_at, created_at, updated_at
	FROM comments`

func scanComment(sc rowScanner) (*Comment, error) {
	var c Comment
	var anchorStart, anchorEnd sql.NullInt64
	var anchorContext, resolvedBy sql.NullString
	var resolvedAt sql.NullInt64
	var isResolved int

	err := sc.Scan(&c.ID, &c.VersionID, &c.AuthorID, &c.Body, &c.AnchorText, &anchorStart, &anchorEnd,
		&anchorContext, &isResolved, &resolvedBy, &resolvedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.IsResolved = isResolved != 0
	if anchorStart.Valid {
		v := int(anchorStart.Int64)
		c.AnchorStart = &v
	}
	if anchorEnd.Valid {
		v := int(anchorEnd.Int64)
		c.AnchorEnd = &v
	}
	c.AnchorContext = nullStrPtr(anchorContext)
	c.ResolvedBy = nullStrPtr(resolvedBy)
	c.ResolvedAt = nullIntPtr(resolvedAt)
	return &c, nil
}
