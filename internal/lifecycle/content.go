package lifecycle

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/metrics"
	"github.com/pharmadocs/dmsd/internal/rbac"
	"github.com/pharmadocs/dmsd/internal/store"
)

// autosaveCoalesceDecile: an autosave's audit row is recorded only on the
// 1st, 10th, 20th, ... autosave since the last manual save (spec.md §4.5).
const autosaveCoalesceDecile = 10

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// SaveResult carries the fields a save-path caller needs to report back.
type SaveResult struct {
	ContentHash string
	LockVersion int64
	NoOp        bool
}

// SaveContent writes new content to a Draft version the caller holds the
// edit lock for, enforcing optimistic content-hash concurrency (spec.md
// §4.5, scenarios S3/S4, invariant P5, idempotence law L2).
func (e *Engine) SaveContent(ctx context.Context, versionID string, principal *store.Principal, lockToken, newContent string, expectedHash *string, isAutosave bool, now int64) (*SaveResult, error) {
	var out *SaveResult
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusDraft {
			return dmserr.New(dmserr.ErrIllegalStatus, "only a Draft version may be saved")
		}

		if err := e.locks.RequireLock(ctx, tx, versionID, principal, lockToken, now); err != nil {
			return err
		}

		if expectedHash != nil && *expectedHash != v.ContentHash {
			return dmserr.Conflict(v.ContentHash)
		}

		newHash := contentHash(newContent)
		if newHash == v.ContentHash {
			out = &SaveResult{ContentHash: v.ContentHash, LockVersion: v.LockVersion, NoOp: true}
			return nil
		}

		oldHash := v.ContentHash
		v.Content = newContent
		v.ContentHash = newHash
		v.LockVersion++
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			return err
		}

		if e.shouldAuditSave(versionID, isAutosave) {
			if err := audit.Event("VERSION_SAVED", "version", v.ID).
				Principal(principal.ID, principal.Username).
				Describe("content saved").
				ESignature(false).
				Detail("is_autosave", isAutosave).
				Detail("before_hash", oldHash).
				Detail("after_hash", newHash).
				Commit(ctx, e.store, tx, now); err != nil {
				return err
			}
		}

		out = &SaveResult{ContentHash: newHash, LockVersion: v.LockVersion}
		return nil
	})
	return out, err
}

// shouldAuditSave decides whether this save's audit row should be written:
// manual saves always are; autosaves are recorded only on the 1st, 10th,
// 20th, ... call since the last manual save. The counter lives in process
// memory only, so after a restart the next autosave is audited as a 1st.
func (e *Engine) shouldAuditSave(versionID string, isAutosave bool) bool {
	if !isAutosave {
		e.autosaveMu.Lock()
		delete(e.autosaveCount, versionID)
		e.autosaveMu.Unlock()
		return true
	}
	metrics.AutosaveSavesTotal.Inc()
	e.autosaveMu.Lock()
	defer e.autosaveMu.Unlock()
	e.autosaveCount[versionID]++
	c := e.autosaveCount[versionID]
	audited := c == 1 || c%e.autosaveCoalesceEach == 0
	if audited {
		metrics.AutosaveAuditedTotal.Inc()
	}
	return audited
}

// DraftMetadataPatch carries the optional non-content fields
// UpdateDraftMetadata may change; nil fields are left untouched.
type DraftMetadataPatch struct {
	ChangeSummary *string
	ChangeType    *store.ChangeType
	ChangeReason  *string
}

// UpdateDraftMetadata updates non-content fields on a Draft version.
// Requires no lock, but requires Author/Admin ownership (spec.md §4.5).
func (e *Engine) UpdateDraftMetadata(ctx context.Context, doc *store.Document, versionID string, principal *store.Principal, patch DraftMetadataPatch, now int64) (*store.DocumentVersion, error) {
	if !rbac.CanEditDraft(principal, doc) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only the owning author or an admin may edit draft metadata")
	}
	if patch.ChangeReason != nil {
		if err := validateChangeReason(*patch.ChangeReason); err != nil {
			return nil, err
		}
	}

	var out *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		v, err := e.store.GetVersionForUpdate(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if v.Status != store.StatusDraft {
			return dmserr.New(dmserr.ErrIllegalStatus, "only a Draft version's metadata may be edited")
		}
		if patch.ChangeSummary != nil {
			v.ChangeSummary = *patch.ChangeSummary
		}
		if patch.ChangeType != nil {
			v.ChangeType = patch.ChangeType
		}
		if patch.ChangeReason != nil {
			v.ChangeReason = patch.ChangeReason
		}
		v.UpdatedAt = now
		if err := e.store.UpdateVersion(ctx, tx, v); err != nil {
			return err
		}

		if err := audit.Event("VERSION_UPDATED", "version", v.ID).
			Principal(principal.ID, principal.Username).
			Describe("draft metadata updated").
			ESignature(false).
			Commit(ctx, e.store, tx, now); err != nil {
			return fmt.Errorf("commit audit: %w", err)
		}
		out = v
		return nil
	})
	return out, err
}
