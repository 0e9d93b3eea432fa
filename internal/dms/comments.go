package dms

import (
	"context"

	"github.com/pharmadocs/dmsd/internal/comment"
	"github.com/pharmadocs/dmsd/internal/store"
)

// CreateComment anchors a comment to a version (spec.md §6 Comments).
func (s *Service) CreateComment(ctx context.Context, doc *store.Document, v *store.DocumentVersion, principal *store.Principal, body string, anchor comment.Anchor, now int64) (*store.Comment, error) {
	return s.comments.Create(ctx, doc, v, principal, body, anchor, now)
}

// EditComment changes a comment's body (spec.md §6 Comments).
func (s *Service) EditComment(ctx context.Context, commentID string, principal *store.Principal, body string, now int64) (*store.Comment, error) {
	return s.comments.Edit(ctx, commentID, principal, body, now)
}

// DeleteComment removes a comment (spec.md §6 Comments).
func (s *Service) DeleteComment(ctx context.Context, commentID string, principal *store.Principal, now int64) error {
	return s.comments.Delete(ctx, commentID, principal, now)
}

// ResolveComment marks a comment resolved (spec.md §6 Comments).
func (s *Service) ResolveComment(ctx context.Context, commentID string, principal *store.Principal, now int64) (*store.Comment, error) {
	return s.comments.Resolve(ctx, commentID, principal, now)
}

// UnresolveComment reopens a resolved comment (spec.md §6 Comments).
func (s *Service) UnresolveComment(ctx context.Context, commentID string, principal *store.Principal, now int64) (*store.Comment, error) {
	return s.comments.Unresolve(ctx, commentID, principal, now)
}

// ListComments returns a version's comments (spec.md §6 Comments).
func (s *Service) ListComments(ctx context.Context, versionID string, includeResolved bool) ([]store.Comment, error) {
	return s.comments.List(ctx, versionID, includeResolved)
}
