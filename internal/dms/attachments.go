package dms

import (
	"context"

	"github.com/pharmadocs/dmsd/internal/attachment"
	"github.com/pharmadocs/dmsd/internal/store"
)

// UploadAttachment stores content under its parent, deduplicated by hash
// (spec.md §6 Attachments).
func (s *Service) UploadAttachment(ctx context.Context, parentKind attachment.ParentKind, parentID string, content []byte, filename, mimeType string, uploader *store.Principal, ext string, now int64) (*store.Attachment, error) {
	return s.attachments.Upload(ctx, parentKind, parentID, content, filename, mimeType, uploader, ext, now)
}

// GetAttachment returns an attachment's metadata (spec.md §6 Attachments).
func (s *Service) GetAttachment(ctx context.Context, id string) (*store.Attachment, error) {
	return s.attachments.Get(ctx, id)
}

// DownloadAttachment returns an attachment's bytes and original filename
// (spec.md §6 Attachments).
func (s *Service) DownloadAttachment(ctx context.Context, id, ext string) ([]byte, string, error) {
	return s.attachments.Download(ctx, id, ext)
}

// DeleteAttachment soft-deletes an attachment (spec.md §6 Attachments).
func (s *Service) DeleteAttachment(ctx context.Context, id string, principal *store.Principal, now int64) error {
	return s.attachments.Delete(ctx, id, principal, now)
}

// ListAttachments returns a parent's non-deleted attachments (spec.md §6
// Attachments).
func (s *Service) ListAttachments(ctx context.Context, parentKind attachment.ParentKind, parentID string) ([]store.Attachment, error) {
	return s.attachments.List(ctx, parentKind, parentID)
}
