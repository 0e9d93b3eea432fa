package dms

import (
	"context"

	"github.com/pharmadocs/dmsd/internal/diff"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/lifecycle"
	"github.com/pharmadocs/dmsd/internal/store"
)

// CreateNextVersion creates a new Draft cloned from the document's current
// Effective version (spec.md §6 Versions, invariant I2).
func (s *Service) CreateNextVersion(ctx context.Context, doc *store.Document, parentVersionID string, principal *store.Principal, changeType store.ChangeType, changeReason string, now int64) (*store.DocumentVersion, error) {
	return s.lifecycle.CreateNextVersion(ctx, doc, parentVersionID, principal, changeType, changeReason, now)
}

// GetVersion returns a version by id (spec.md §6 Versions).
func (s *Service) GetVersion(ctx context.Context, versionID string) (*store.DocumentVersion, error) {
	return s.store.GetVersion(ctx, versionID)
}

// ListVersions returns every version of a document, newest first by version
// number (supplemented feature: version history listing, SPEC_FULL.md §7).
func (s *Service) ListVersions(ctx context.Context, documentID string) ([]store.DocumentVersion, error) {
	return s.store.ListVersions(ctx, documentID)
}

// DiffVersions computes a textual diff between two versions' content,
// labeled by their version strings (supplemented feature: reviewer-facing
// redline, SPEC_FULL.md §3).
func (s *Service) DiffVersions(ctx context.Context, oldVersionID, newVersionID string) (diff.Result, error) {
	oldV, err := s.store.GetVersion(ctx, oldVersionID)
	if err != nil {
		return diff.Result{}, err
	}
	newV, err := s.store.GetVersion(ctx, newVersionID)
	if err != nil {
		return diff.Result{}, err
	}
	return diff.Compute(oldV.Content, newV.Content, oldV.VersionString, newV.VersionString), nil
}

// UpdateDraftMetadata updates a Draft version's non-content fields
// (spec.md §6 Versions).
func (s *Service) UpdateDraftMetadata(ctx context.Context, doc *store.Document, versionID string, principal *store.Principal, patch lifecycle.DraftMetadataPatch, now int64) (*store.DocumentVersion, error) {
	if patch.ChangeReason != nil && (len(*patch.ChangeReason) < 10 || len(*patch.ChangeReason) > 1000) {
		return nil, dmserr.New(dmserr.ErrValidation, "change_reason must be 10-1000 characters")
	}
	return s.lifecycle.UpdateDraftMetadata(ctx, doc, versionID, principal, patch, now)
}

// SaveContent writes new content to a locked Draft version (spec.md §6
// Versions, scenarios S3/S4).
func (s *Service) SaveContent(ctx context.Context, versionID string, principal *store.Principal, lockToken, content string, expectedHash *string, isAutosave bool, now int64) (*lifecycle.SaveResult, error) {
	return s.lifecycle.SaveContent(ctx, versionID, principal, lockToken, content, expectedHash, isAutosave, now)
}

// Submit moves a Draft to Under Review (spec.md §6 Versions).
func (s *Service) Submit(ctx context.Context, doc *store.Document, versionID string, principal *store.Principal, credential string, comment *string, now int64) (*store.DocumentVersion, error) {
	return s.lifecycle.Submit(ctx, doc, versionID, principal, credential, comment, now)
}

// ApproveReview advances Under Review to Pending Approval (spec.md §6
// Versions).
func (s *Service) ApproveReview(ctx context.Context, versionID string, principal *store.Principal, credential string, comment *string, now int64) (*store.DocumentVersion, error) {
	return s.lifecycle.ApproveReview(ctx, versionID, principal, credential, comment, now)
}

// RequestChanges sends Under Review back to Draft with a required reason
// (spec.md §6 Versions).
func (s *Service) RequestChanges(ctx context.Context, versionID string, principal *store.Principal, credential, reason string, now int64) (*store.DocumentVersion, error) {
	return s.lifecycle.RequestChanges(ctx, versionID, principal, credential, reason, now)
}

// Approve advances Pending Approval to Approved (spec.md §6 Versions).
func (s *Service) Approve(ctx context.Context, versionID string, principal *store.Principal, credential string, comment *string, now int64) (*store.DocumentVersion, error) {
	return s.lifecycle.Approve(ctx, versionID, principal, credential, comment, now)
}

// Reject sends Pending Approval back to Draft with a required reason
// (spec.md §6 Versions).
func (s *Service) Reject(ctx context.Context, versionID string, principal *store.Principal, credential, reason string, now int64) (*store.DocumentVersion, error) {
	return s.lifecycle.Reject(ctx, versionID, principal, credential, reason, now)
}

// Publish moves Approved to Effective, atomically obsoleting the prior
// Effective version (spec.md §6 Versions, invariant I1).
func (s *Service) Publish(ctx context.Context, doc *store.Document, versionID string, principal *store.Principal, credential string, effectiveAt *int64, now int64) (*store.DocumentVersion, error) {
	return s.lifecycle.Publish(ctx, doc, versionID, principal, credential, effectiveAt, now)
}

// Archive moves Effective or Obsolete to Archived (spec.md §6 Versions).
func (s *Service) Archive(ctx context.Context, versionID string, principal *store.Principal, credential string, now int64) (*store.DocumentVersion, error) {
	return s.lifecycle.Archive(ctx, versionID, principal, credential, now)
}

// ExportVersion renders a version to DOCX and records the export audit
// entry (spec.md §4.8).
func (s *Service) ExportVersion(ctx context.Context, doc *store.Document, versionID string, principal *store.Principal, now int64) ([]byte, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, doc, v, principal, now)
}
