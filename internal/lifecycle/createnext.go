package lifecycle

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/rbac"
	"github.com/pharmadocs/dmsd/internal/store"
)

// CreateNextVersion creates a new Draft version cloned from parent, which
// must be the document's current Effective version with no existing Draft
// (enforces I2). changeType is Minor or Major; changeReason must be
// 10-1000 characters (spec.md §4.3).
func (e *Engine) CreateNextVersion(ctx context.Context, doc *store.Document, parentID string, principal *store.Principal, changeType store.ChangeType, changeReason string, now int64) (*store.DocumentVersion, error) {
	if !rbac.CanEditDraft(principal, doc) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only the owning author or an admin may create the next version")
	}
	if changeType != store.ChangeMinor && changeType != store.ChangeMajor {
		return nil, dmserr.New(dmserr.ErrValidation, "change_type must be Minor or Major")
	}
	if err := validateChangeReason(changeReason); err != nil {
		return nil, err
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		parent, err := e.store.GetVersionForUpdate(ctx, tx, parentID)
		if err != nil {
			return err
		}
		if parent.Status != store.StatusEffective {
			return dmserr.New(dmserr.ErrIllegalTransition, "a new version can only be created from the current Effective version")
		}

		existingDraft, err := e.store.GetDraftVersion(ctx, tx, doc.ID)
		if err != nil {
			return fmt.Errorf("check existing draft: %w", err)
		}
		if existingDraft != nil {
			return dmserr.New(dmserr.ErrInvariantViolation, "document already has a Draft version")
		}

		var nextString string
		switch changeType {
		case store.ChangeMinor:
			nextString, err = bumpMinor(parent.VersionString)
		case store.ChangeMajor:
			nextString, err = bumpMajor(parent.VersionString)
		}
		if err != nil {
			return err
		}

		maxNum, err := e.store.MaxVersionNumber(ctx, tx, doc.ID)
		if err != nil {
			return err
		}

		// The new Draft becomes the latest version; the Effective parent
		// stops being latest so invariant P3 (exactly one is_latest) holds.
		parent.IsLatest = false
		parent.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, parent); err != nil {
			return err
		}

		v := &store.DocumentVersion{
			DocumentID:      doc.ID,
			VersionNumber:   maxNum + 1,
			VersionString:   nextString,
			Status:          store.StatusDraft,
			Content:         parent.Content,
			ContentHash:     parent.ContentHash,
			ChangeType:      &changeType,
			ChangeReason:    &changeReason,
			ParentVersionID: &parent.ID,
			IsLatest:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := e.store.CreateVersion(ctx, tx, v); err != nil {
			return err
		}

		if err := audit.Event("VERSION_CREATED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe(fmt.Sprintf("created %s from %s", v.VersionString, parent.VersionString)).
			ESignature(false).
			Detail("parent_version", parent.ID).
			Detail("change_type", string(changeType)).
			Commit(ctx, e.store, tx, now); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
