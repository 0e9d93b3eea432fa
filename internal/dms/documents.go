package dms

import (
	"context"
	"fmt"

	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/lifecycle"
	"github.com/pharmadocs/dmsd/internal/store"
)

// CreateDocumentRequest carries document metadata for CreateDocument,
// struct-tag validated before it reaches the lifecycle engine (spec.md §6
// Documents).
type CreateDocumentRequest struct {
	Title              string   `validate:"required,max=500"`
	Description        string   `validate:"max=10000"`
	Department         string   `validate:"required,len=4"`
	Tags               []string `validate:"max=20,dive,max=64"`
	CreateInitialDraft bool
}

// CreateDocument validates req and creates a Document, optionally with its
// v0.1 initial Draft, in one transaction (spec.md §6 Documents).
func (s *Service) CreateDocument(ctx context.Context, req CreateDocumentRequest, owner *store.Principal, now int64) (*store.Document, *store.DocumentVersion, error) {
	if err := validate.Struct(req); err != nil {
		return nil, nil, dmserr.New(dmserr.ErrValidation, err.Error())
	}
	return s.lifecycle.CreateDocument(ctx, s.departments, lifecycle.NewDocumentRequest{
		Title:              req.Title,
		Description:        req.Description,
		Department:         req.Department,
		Tags:               req.Tags,
		CreateInitialDraft: req.CreateInitialDraft,
	}, owner, now)
}

// ListDocuments returns a filtered, paginated page of documents (spec.md §6
// Documents).
func (s *Service) ListDocuments(ctx context.Context, f store.DocumentFilter) ([]store.Document, int, error) {
	return s.store.ListDocuments(ctx, f)
}

// GetDocument returns a document by id (spec.md §6 Documents). Callers that
// also need the version summary should follow up with ListVersions.
func (s *Service) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// GetDocumentByNumber returns a document by its human-facing number.
func (s *Service) GetDocumentByNumber(ctx context.Context, number string) (*store.Document, error) {
	return s.store.GetDocumentByNumber(ctx, number)
}

// UpdateDocumentMetadataRequest carries the patch fields for
// UpdateDocumentMetadata, struct-tag validated where a value is present.
type UpdateDocumentMetadataRequest struct {
	Title       *string  `validate:"omitempty,max=500"`
	Description *string  `validate:"omitempty,max=10000"`
	Department  *string  `validate:"omitempty,len=4"`
	Tags        []string `validate:"omitempty,max=20,dive,max=64"`
}

// UpdateDocumentMetadata patches a document's non-version metadata
// (spec.md §6 Documents).
func (s *Service) UpdateDocumentMetadata(ctx context.Context, id string, req UpdateDocumentMetadataRequest) error {
	if err := validate.Struct(req); err != nil {
		return dmserr.New(dmserr.ErrValidation, err.Error())
	}
	if req.Department != nil {
		if err := s.departments.Validate(*req.Department); err != nil {
			return err
		}
	}
	patch := store.DocumentPatch{
		Title:       req.Title,
		Description: req.Description,
		Department:  req.Department,
	}
	if req.Tags != nil {
		patch.Tags = &req.Tags
	}
	if err := s.store.UpdateDocumentMetadata(ctx, id, patch); err != nil {
		return fmt.Errorf("update document metadata: %w", err)
	}
	return nil
}

// SoftDeleteDocument marks a document deleted without removing its audit
// trail (spec.md §6 Documents).
func (s *Service) SoftDeleteDocument(ctx context.Context, id string) error {
	return s.store.SoftDeleteDocument(ctx, id)
}
