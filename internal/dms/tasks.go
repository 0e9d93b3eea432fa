package dms

import (
	"context"

	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/pharmadocs/dmsd/internal/taskfeed"
)

// GetPendingTasks returns the documents requiring principal's action,
// derived fresh on every call (spec.md §6 Tasks & Audit, §4.7).
func (s *Service) GetPendingTasks(ctx context.Context, principal *store.Principal) ([]taskfeed.Task, error) {
	return s.tasks.For(ctx, principal)
}

// ListAuditEntries returns a filtered, paginated page of the append-only
// audit log (spec.md §6 Tasks & Audit).
func (s *Service) ListAuditEntries(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, int, error) {
	return s.store.ListAuditEntries(ctx, f)
}
