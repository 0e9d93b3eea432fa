// Package comment implements the commenting subsystem (spec.md §4.6): inline
// comments anchored to text selections on non-Draft versions (plus a Draft
// an Admin is editing), with role-gated authorship and a resolved-state
// machine. The version's status never gates comment creation; that gate
// belongs to the editor's read-only banner, a UI concern out of scope here.
package comment

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/rbac"
	"github.com/pharmadocs/dmsd/internal/store"
)

// Service implements the commenting subsystem, backed by a Store.
type Service struct {
	store store.Store
}

func New(s store.Store) *Service {
	return &Service{store: s}
}

// Anchor carries the text-selection payload a comment attaches to. Text is
// canonical; Start/End/Context are hints used only to aid highlighting and
// must never be relied on for matching (spec.md §4.6).
type Anchor struct {
	Text    string
	Start   *int
	End     *int
	Context *string
}

func canCommentOn(p *store.Principal, doc *store.Document, v *store.DocumentVersion) bool {
	if v.Status == store.StatusDraft {
		return rbac.CanCommentOnDraft(p, doc)
	}
	return rbac.CanComment(p)
}

// Create adds a comment to version on behalf of principal (spec.md §4.6).
func (s *Service) Create(ctx context.Context, doc *store.Document, v *store.DocumentVersion, principal *store.Principal, body string, anchor Anchor, now int64) (*store.Comment, error) {
	if body == "" {
		return nil, dmserr.New(dmserr.ErrValidation, "comment body must not be empty")
	}
	if anchor.Text == "" {
		return nil, dmserr.New(dmserr.ErrValidation, "comment anchor text must not be empty")
	}
	if !canCommentOn(principal, doc, v) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "principal may not comment on this version")
	}

	c := &store.Comment{
		VersionID:     v.ID,
		AuthorID:      principal.ID,
		Body:          body,
		AnchorText:    anchor.Text,
		AnchorStart:   anchor.Start,
		AnchorEnd:     anchor.End,
		AnchorContext: anchor.Context,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		if err := s.store.CreateComment(ctx, c); err != nil {
			return err
		}
		return audit.Event("COMMENT_CREATED", "comment", c.ID).
			Principal(principal.ID, principal.Username).
			Describe("comment created").
			ESignature(false).
			Detail("version_id", v.ID).
			Commit(ctx, s.store, tx, now)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Edit updates a comment's body. The author and any DMS_Admin may (spec.md
// §4.6).
func (s *Service) Edit(ctx context.Context, commentID string, principal *store.Principal, body string, now int64) (*store.Comment, error) {
	if body == "" {
		return nil, dmserr.New(dmserr.ErrValidation, "comment body must not be empty")
	}
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanEditComment(principal, c.AuthorID) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "only the comment's author or an admin may edit it")
	}
	c.Body = body
	c.UpdatedAt = now

	err = s.store.Tx(ctx, func(tx *sql.Tx) error {
		if err := s.store.UpdateComment(ctx, c); err != nil {
			return err
		}
		return audit.Event("COMMENT_UPDATED", "comment", c.ID).
			Principal(principal.ID, principal.Username).
			Describe("comment edited").
			ESignature(false).
			Commit(ctx, s.store, tx, now)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a comment. The author and any DMS_Admin may (spec.md
// §4.6).
func (s *Service) Delete(ctx context.Context, commentID string, principal *store.Principal, now int64) error {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !rbac.CanEditComment(principal, c.AuthorID) {
		return dmserr.New(dmserr.ErrPermissionDenied, "only the comment's author or an admin may delete it")
	}

	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		if err := s.store.DeleteComment(ctx, commentID); err != nil {
			return err
		}
		return audit.Event("COMMENT_DELETED", "comment", commentID).
			Principal(principal.ID, principal.Username).
			Describe("comment deleted").
			ESignature(false).
			Detail("version_id", c.VersionID).
			Commit(ctx, s.store, tx, now)
	})
}

// Resolve marks a comment resolved. Any commenting-capable principal may
// (spec.md §4.6).
func (s *Service) Resolve(ctx context.Context, commentID string, principal *store.Principal, now int64) (*store.Comment, error) {
	return s.setResolved(ctx, commentID, principal, true, now)
}

// Unresolve reopens a previously-resolved comment.
func (s *Service) Unresolve(ctx context.Context, commentID string, principal *store.Principal, now int64) (*store.Comment, error) {
	return s.setResolved(ctx, commentID, principal, false, now)
}

func (s *Service) setResolved(ctx context.Context, commentID string, principal *store.Principal, resolved bool, now int64) (*store.Comment, error) {
	if !rbac.CanResolveComment(principal) {
		return nil, dmserr.New(dmserr.ErrPermissionDenied, "principal may not resolve comments")
	}
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	c.IsResolved = resolved
	c.UpdatedAt = now
	if resolved {
		c.ResolvedBy = &principal.ID
		c.ResolvedAt = &now
	} else {
		c.ResolvedBy = nil
		c.ResolvedAt = nil
	}

	action, description := "COMMENT_RESOLVED", "comment resolved"
	if !resolved {
		action, description = "COMMENT_UNRESOLVED", "comment reopened"
	}

	err = s.store.Tx(ctx, func(tx *sql.Tx) error {
		if err := s.store.UpdateComment(ctx, c); err != nil {
			return err
		}
		return audit.Event(action, "comment", c.ID).
			Principal(principal.ID, principal.Username).
			Describe(description).
			ESignature(false).
			Commit(ctx, s.store, tx, now)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns a version's comments, newest-last, optionally including
// resolved ones.
func (s *Service) List(ctx context.Context, versionID string, includeResolved bool) ([]store.Comment, error) {
	comments, err := s.store.ListComments(ctx, versionID, includeResolved)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
