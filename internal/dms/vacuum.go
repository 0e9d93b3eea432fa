package dms

import (
	"context"
	"time"

	"github.com/pharmadocs/dmsd/internal/store"
)

// Vacuum sweeps expired edit locks unconditionally and, when olderThan is
// given, purges soft-deleted attachments older than the cutoff. Spec.md §5
// requires correctness never depend on this running; it is housekeeping,
// not a lifecycle operation, so it carries no e-signature gate.
func (s *Service) Vacuum(ctx context.Context, olderThan *time.Duration) (store.VacuumReport, error) {
	return s.store.Vacuum(ctx, olderThan)
}
