// Package attachment implements deduplicated binary uploads and soft-delete
// for attachments owned by a document or a version (spec.md §4.8). The blob
// store itself is an external collaborator (spec.md §1); this package
// computes the content hash, checks for an existing row under the same
// parent, and persists metadata, leaving byte storage to a Blobs
// implementation supplied by the caller.
package attachment

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/store"
)

// Blobs stores and serves the actual file bytes, keyed by content hash. The
// filename on disk is sha256+extension, per spec.md §3. A concrete
// implementation (filesystem, object storage) lives outside this package;
// the core only needs this narrow interface.
type Blobs interface {
	// Put stores content under sha256, a no-op if it already exists
	// (dedup at the blob layer mirrors dedup at the metadata layer).
	Put(ctx context.Context, sha256, ext string, content []byte) error
	// Get retrieves previously-stored bytes.
	Get(ctx context.Context, sha256, ext string) ([]byte, error)
}

// Service implements attachment upload, download, listing, and soft delete.
type Service struct {
	store store.Store
	blobs Blobs
}

func New(s store.Store, blobs Blobs) *Service {
	return &Service{store: s, blobs: blobs}
}

// ParentKind is "document" or "version" — an attachment belongs to exactly
// one, never both (spec.md §3).
type ParentKind string

const (
	ParentDocument ParentKind = "document"
	ParentVersion  ParentKind = "version"
)

// Upload computes content's SHA-256, stores the bytes (if not already
// present for this parent), and returns the attachment row. A second upload
// of identical content under the same parent returns the existing row
// unchanged (spec.md §4.8 dedup).
func (s *Service) Upload(ctx context.Context, parentKind ParentKind, parentID string, content []byte, filename, mimeType string, uploader *store.Principal, ext string, now int64) (*store.Attachment, error) {
	if len(content) == 0 {
		return nil, dmserr.New(dmserr.ErrValidation, "attachment content must not be empty")
	}
	if filename == "" {
		return nil, dmserr.New(dmserr.ErrValidation, "attachment filename must not be empty")
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.store.FindAttachmentByHash(ctx, string(parentKind), parentID, hash)
	if err != nil {
		return nil, fmt.Errorf("check existing attachment: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if err := s.blobs.Put(ctx, hash, ext, content); err != nil {
		return nil, fmt.Errorf("store attachment bytes: %w", err)
	}

	a := &store.Attachment{
		Filename:   filename,
		SHA256:     hash,
		ByteSize:   int64(len(content)),
		MimeType:   mimeType,
		UploaderID: uploader.ID,
		CreatedAt:  now,
	}
	switch parentKind {
	case ParentDocument:
		a.DocumentID = &parentID
	case ParentVersion:
		a.VersionID = &parentID
	default:
		return nil, dmserr.New(dmserr.ErrValidation, "parentKind must be document or version")
	}

	err = s.store.Tx(ctx, func(tx *sql.Tx) error {
		if err := s.store.CreateAttachment(ctx, a); err != nil {
			return err
		}
		return audit.Event("ATTACHMENT_UPLOADED", "attachment", a.ID).
			Principal(uploader.ID, uploader.Username).
			Describe("attachment uploaded").
			ESignature(false).
			Detail("filename", filename).
			Detail("sha256", hash).
			Commit(ctx, s.store, tx, now)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns an attachment's metadata.
func (s *Service) Get(ctx context.Context, id string) (*store.Attachment, error) {
	return s.store.GetAttachment(ctx, id)
}

// Download returns an attachment's bytes and original filename, for a
// Content-Disposition header (spec.md §4.8).
func (s *Service) Download(ctx context.Context, id, ext string) ([]byte, string, error) {
	a, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if a.DeletedAt != nil {
		return nil, "", dmserr.New(dmserr.ErrNotFound, "attachment has been deleted")
	}
	content, err := s.blobs.Get(ctx, a.SHA256, ext)
	if err != nil {
		return nil, "", fmt.Errorf("read attachment bytes: %w", err)
	}
	return content, a.Filename, nil
}

// Delete soft-deletes an attachment; the underlying blob is retained
// (spec.md §4.8).
func (s *Service) Delete(ctx context.Context, id string, principal *store.Principal, now int64) error {
	if err := s.store.SoftDeleteAttachment(ctx, id); err != nil {
		return err
	}
	return audit.Event("ATTACHMENT_DELETED", "attachment", id).
		Principal(principal.ID, principal.Username).
		Describe("attachment soft-deleted").
		ESignature(false).
		Best(ctx, s.store, now)
}

// List returns an attachment parent's non-deleted attachments.
func (s *Service) List(ctx context.Context, parentKind ParentKind, parentID string) ([]store.Attachment, error) {
	return s.store.ListAttachments(ctx, string(parentKind), parentID)
}
