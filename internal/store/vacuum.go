// vacuum.go implements housekeeping passes over expired locks and
// soft-deleted attachments. Spec.md §5 mandates only that an optional
// expired-lock sweep exist and that correctness never depend on it; this
// extends the same optionality to purging old soft-deleted attachments.
// Comments are not touched here.
package store

import (
	"context"
	"fmt"
	"time"
)

// Vacuum permanently removes expired locks and attachments that were
// soft-deleted before the cutoff; it never sets CommentsPurged. A nil
// olderThan means "sweep expired locks only, skip the attachment purge" —
// locks are always safe to sweep by wall-clock alone.
func (s *SQLiteStore) Vacuum(ctx context.Context, olderThan *time.Duration) (VacuumReport, error) {
	var report VacuumReport

	now := nowUnix()
	locksCleared, err := s.SweepExpiredLocks(ctx, now)
	if err != nil {
		return report, err
	}
	report.LocksExpired = locksCleared

	if olderThan == nil {
		return report, nil
	}
	cutoff := now - int64(olderThan.Seconds())

	res, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff)
	if err != nil {
		return report, fmt.Errorf("purge attachments: %w", err)
	}
	report.AttachmentsPurged, _ = res.RowsAffected()

	return report, nil
}

// nowUnix is a thin indirection so tests can stub time.
var nowUnix = func() int64 { return time.Now().Unix() }

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`, &st.Documents},
		{`SELECT COUNT(*) FROM documents WHERE deleted_at IS NOT NULL`, &st.DeletedDocs},
		{`SELECT COUNT(*) FROM document_versions`, &st.TotalVersions},
		{`SELECT COUNT(*) FROM document_versions WHERE status = 'Effective'`, &st.EffectiveDocs},
		{`SELECT COUNT(*) FROM edit_locks WHERE expires_at > ` + fmt.Sprint(nowUnix()), &st.OpenLocks},
		{`SELECT COUNT(*) FROM comments WHERE is_resolved = 0`, &st.OpenComments},
		{`SELECT COUNT(*) FROM attachments WHERE deleted_at IS NULL`, &st.Attachments},
		{`SELECT COUNT(*) FROM audit_entries`, &st.AuditEntries},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats query: %w", err)
		}
	}
	return &st, nil
}
