// Package lifecycle implements the centerpiece state machine (spec.md
// §4.3): an explicit table of legal transitions, each a function whose
// signature makes its capability and e-signature requirements visible, per
// the redesign away from the source's deep ORM inheritance and
// exception-driven control flow.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/auth"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/lock"
	"github.com/pharmadocs/dmsd/internal/metrics"
	"github.com/pharmadocs/dmsd/internal/rbac"
	"github.com/pharmadocs/dmsd/internal/store"
)

const (
	minChangeReasonLen = 10
	maxChangeReasonLen = 1000
)

// Engine is the lifecycle state machine, backed by a Store, the session
// gate (for e-signature re-verification), and the edit-lock coordinator
// (for save-path locking).
type Engine struct {
	store store.Store
	gate  *auth.Gate
	locks *lock.Coordinator

	autosaveMu           sync.Mutex
	autosaveCount        map[string]int // versionID -> autosaves since last manual save; in-memory only
	autosaveCoalesceEach int
}

func New(s store.Store, gate *auth.Gate, locks *lock.Coordinator) *Engine {
	return &Engine{
		store:                s,
		gate:                 gate,
		locks:                locks,
		autosaveCount:        make(map[string]int),
		autosaveCoalesceEach: autosaveCoalesceDecile,
	}
}

// WithAutosaveCoalesceEvery overrides how often an autosave's audit row is
// recorded, for deployments that configure autosave.audit_coalesce_decile
// away from the default.
func (e *Engine) WithAutosaveCoalesceEvery(n int) *Engine {
	if n > 0 {
		e.autosaveCoalesceEach = n
	}
	return e
}

// observe records a transition outcome for operational metrics: "ok" on
// success, otherwise "error".
func observe(transition string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.TransitionsTotal.WithLabelValues(transition, outcome).Inc()
}

func validateChangeReason(reason string) error {
	if len(reason) < minChangeReasonLen || len(reason) > maxChangeReasonLen {
		return dmserr.New(dmserr.ErrValidation,
			fmt.Sprintf("change_reason must be %d-%d characters", minChangeReasonLen, maxChangeReasonLen))
	}
	return nil
}

// esign re-verifies principal's credential before any mutation. On
// mismatch it emits a best-effort ESIGNATURE_FAILED audit entry (not an
// audit-worthy transition) and returns ESignatureMismatch without touching
// the version.
func (e *Engine) esign(ctx context.Context, principal *store.Principal, credential, entityKind, entityID string, now int64) error {
	if err := e.gate.VerifyESignature(ctx, principal, credential); err != nil {
		_ = audit.Event("ESIGNATURE_FAILED", entityKind, entityID).
			Principal(principal.ID, principal.Username).
			Describe("e-signature credential did not match").
			ESignature(false).
			Best(ctx, e.store, now)
		return err
	}
	return nil
}

// Submit moves a Draft version to Under Review. Requires Author-owner or
// Admin and a verified e-signature (spec.md §4.3 row 1).
func (e *Engine) Submit(ctx context.Context, doc *store.Document, versionID string, principal *store.Principal, credential string, comment *string, now int64) (*store.DocumentVersion, error) {
	if !rbac.CanSubmit(principal, doc) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only the owning author or an admin may submit this draft")
	}
	if err := e.esign(ctx, principal, credential, "version", versionID, now); err != nil {
		return nil, err
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusDraft {
			return dmserr.New(dmserr.ErrIllegalTransition, "only a Draft version may be submitted")
		}
		v.Status = store.StatusUnderReview
		v.SubmittedAt = &now
		v.SubmittedBy = &principal.ID
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			return err
		}
		if err := e.store.DeleteLock(ctx, tx, versionID); err != nil {
			return fmt.Errorf("release edit lock on submit: %w", err)
		}

		b := audit.Event("VERSION_SUBMITTED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe("submitted for review").
			ESignature(true)
		if comment != nil {
			b = b.Detail("comment", *comment)
		}
		if err := b.Commit(ctx, e.store, tx, now); err != nil {
			return err
		}
		out = v
		return nil
	})
	observe("submit", err)
	return out, err
}

// ApproveReview moves a version from Under Review to Pending Approval.
// Requires Reviewer or Admin and a verified e-signature.
func (e *Engine) ApproveReview(ctx context.Context, versionID string, principal *store.Principal, credential string, comment *string, now int64) (*store.DocumentVersion, error) {
	if !rbac.CanApproveReview(principal) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only a reviewer or admin may approve a review")
	}
	if err := e.esign(ctx, principal, credential, "version", versionID, now); err != nil {
		return nil, err
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusUnderReview {
			return dmserr.New(dmserr.ErrIllegalTransition, "only an Under Review version may advance to Pending Approval")
		}
		v.Status = store.StatusPendingApproval
		v.ReviewedAt = &now
		v.ReviewedBy = &principal.ID
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			return err
		}

		b := audit.Event("VERSION_REVIEW_APPROVED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe("review approved, pending final approval").
			ESignature(true)
		if comment != nil {
			b = b.Detail("comment", *comment)
		}
		if err := b.Commit(ctx, e.store, tx, now); err != nil {
			return err
		}
		out = v
		return nil
	})
	observe("approve_review", err)
	return out, err
}

// RequestChanges sends a version from Under Review back to Draft. Requires
// Reviewer or Admin, a verified e-signature, and a 10-1000 character
// reason (spec.md §4.3 row 3, required comment).
func (e *Engine) RequestChanges(ctx context.Context, versionID string, principal *store.Principal, credential, reason string, now int64) (*store.DocumentVersion, error) {
	if err := validateChangeReason(reason); err != nil {
		return nil, err
	}
	if !rbac.CanApproveReview(principal) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only a reviewer or admin may request changes")
	}
	if err := e.esign(ctx, principal, credential, "version", versionID, now); err != nil {
		return nil, err
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusUnderReview {
			return dmserr.New(dmserr.ErrIllegalTransition, "only an Under Review version can have changes requested")
		}
		v.Status = store.StatusDraft
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			return err
		}

		if err := audit.Event("VERSION_CHANGES_REQUESTED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe("changes requested").
			ESignature(true).
			Detail("reason", reason).
			Commit(ctx, e.store, tx, now); err != nil {
			return err
		}
		out = v
		return nil
	})
	observe("request_changes", err)
	return out, err
}

// Approve moves a version from Pending Approval to Approved. Requires
// Approver or Admin and a verified e-signature.
func (e *Engine) Approve(ctx context.Context, versionID string, principal *store.Principal, credential string, comment *string, now int64) (*store.DocumentVersion, error) {
	if !rbac.CanApprove(principal) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only an approver or admin may approve")
	}
	if err := e.esign(ctx, principal, credential, "version", versionID, now); err != nil {
		return nil, err
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusPendingApproval {
			return dmserr.New(dmserr.ErrIllegalTransition, "only a Pending Approval version may be approved")
		}
		v.Status = store.StatusApproved
		v.ApprovedAt = &now
		v.ApprovedBy = &principal.ID
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			return err
		}

		b := audit.Event("VERSION_APPROVED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe("approved").
			ESignature(true)
		if comment != nil {
			b = b.Detail("comment", *comment)
		}
		if err := b.Commit(ctx, e.store, tx, now); err != nil {
			return err
		}
		out = v
		return nil
	})
	observe("approve", err)
	return out, err
}

// Reject sends a version from Pending Approval back to Draft. Requires
// Approver or Admin, a verified e-signature, and a 10-1000 character
// reason (spec.md §4.3 row 5, required comment).
func (e *Engine) Reject(ctx context.Context, versionID string, principal *store.Principal, credential, reason string, now int64) (*store.DocumentVersion, error) {
	if err := validateChangeReason(reason); err != nil {
		return nil, err
	}
	if !rbac.CanApprove(principal) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only an approver or admin may reject")
	}
	if err := e.esign(ctx, principal, credential, "version", versionID, now); err != nil {
		return nil, err
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusPendingApproval {
			return dmserr.New(dmserr.ErrIllegalTransition, "only a Pending Approval version may be rejected")
		}
		v.Status = store.StatusDraft
		v.RejectedAt = &now
		v.RejectedBy = &principal.ID
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			return err
		}

		if err := audit.Event("VERSION_REJECTED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe("rejected").
			ESignature(true).
			Detail("reason", reason).
			Commit(ctx, e.store, tx, now); err != nil {
			return err
		}
		out = v
		return nil
	})
	observe("reject", err)
	return out, err
}

// Publish moves an Approved version to Effective, atomically obsoleting
// the document's prior Effective version if one exists (spec.md §4.3,
// invariant I1, scenarios S1-S2). Admin only.
func (e *Engine) Publish(ctx context.Context, doc *store.Document, versionID string, principal *store.Principal, credential string, effectiveAt *int64, now int64) (*store.DocumentVersion, error) {
	if !rbac.CanPublish(principal) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only an admin may publish")
	}
	if err := e.esign(ctx, principal, credential, "version", versionID, now); err != nil {
		return nil, err
	}

	when := now
	if effectiveAt != nil {
		when = *effectiveAt
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusApproved {
			return dmserr.New(dmserr.ErrIllegalTransition, "only an Approved version may be published")
		}

		predecessor, err := e.store.GetEffectiveVersion(ctx, tx, doc.ID)
		if err != nil {
			return fmt.Errorf("locate current effective version: %w", err)
		}
		if predecessor != nil && (v.ParentVersionID == nil || *v.ParentVersionID != predecessor.ID) {
			return dmserr.New(dmserr.ErrInvariantViolation, "another version of this document became Effective after this version was created")
		}

		if predecessor == nil {
			v.VersionString = firstPublishedVersionString
		} else {
			// Vacate the one-Effective slot first: uidx_versions_one_effective
			// is checked per statement, so v cannot become Effective while
			// its predecessor still is.
			predecessor.Status = store.StatusObsolete
			if err := e.store.UpdateVersion(ctx, tx, predecessor); err != nil {
				return err
			}
		}
		v.Status = store.StatusEffective
		v.EffectiveAt = &when
		v.IsLatest = true
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// uidx_versions_one_effective caught a concurrent Publish
				// of a different version for the same document (I1); the
				// precondition check above ran against a snapshot that a
				// racing writer has since invalidated.
				return dmserr.New(dmserr.ErrInvariantViolation, "another version became Effective for this document concurrently")
			}
			return err
		}

		detail := map[string]any{"published_version": v.ID, "version_string": v.VersionString}
		if predecessor != nil {
			predecessor.Status = store.StatusObsolete
			predecessor.ObsoleteAt = &when
			predecessor.ReplacedBy = &v.ID
			predecessor.IsLatest = false
			predecessor.UpdatedAt = now
			if err := e.store.UpdateVersion(ctx, tx, predecessor); err != nil {
				return err
			}
			detail["obsoleted_version"] = predecessor.ID
		}

		if err := e.store.SetCurrentVersion(ctx, tx, doc.ID, &v.ID); err != nil {
			return err
		}

		b := audit.Event("VERSION_PUBLISHED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe("published").
			ESignature(true)
		for k, val := range detail {
			b = b.Detail(k, val)
		}
		if err := b.Commit(ctx, e.store, tx, now); err != nil {
			return err
		}
		out = v
		return nil
	})
	observe("publish", err)
	return out, err
}

// Archive moves an Effective or Obsolete version to Archived. Admin only.
func (e *Engine) Archive(ctx context.Context, versionID string, principal *store.Principal, credential string, now int64) (*store.DocumentVersion, error) {
	if !rbac.CanArchive(principal) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only an admin may archive")
	}
	if err := e.esign(ctx, principal, credential, "version", versionID, now); err != nil {
		return nil, err
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusEffective && v.Status != store.StatusObsolete {
			return dmserr.New(dmserr.ErrIllegalTransition, "only an Effective or Obsolete version may be archived")
		}
		v.Status = store.StatusArchived
		v.ArchivedAt = &now
		v.ArchivedBy = &principal.ID
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			return err
		}

		if err := audit.Event("VERSION_ARCHIVED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe("archived").
			ESignature(true).
			Commit(ctx, e.store, tx, now); err != nil {
			return err
		}
		out = v
		return nil
	})
	observe("archive", err)
	return out, err
}
