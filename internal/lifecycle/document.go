package lifecycle

import (
	"context"
	"database/sql"
	"time"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/dmserr"
	"github.com/pharmadocs/dmsd/internal/docnum"
	"github.com/pharmadocs/dmsd/internal/rbac"
	"github.com/pharmadocs/dmsd/internal/store"
)

// initialVersionString is the version string of the first Draft created
// for a new document (spec.md §4.3).
const initialVersionString = "v0.1"

// NewDocumentRequest carries the fields needed to create a document and,
// optionally, its initial Draft version in one transaction.
type NewDocumentRequest struct {
	Title              string
	Description        string
	Department         string
	Tags               []string
	CreateInitialDraft bool
}

// CreateDocument creates the Document row and, if requested, a v0.1 Draft
// in the same transaction, assigning the auto-generated document number
// (spec.md §4.3 "create-document-plus-initial-version").
func (e *Engine) CreateDocument(ctx context.Context, registry *docnum.Registry, req NewDocumentRequest, owner *store.Principal, now int64) (*store.Document, *store.DocumentVersion, error) {
	if !rbac.CanCreateDocument(owner) {
		return nil, nil, dmserr.New(dmserr.ErrPermissionDenied, "only an author or admin may create a document")
	}
	if err := registry.Validate(req.Department); err != nil {
		return nil, nil, err
	}

	var doc store.Document
	var version *store.DocumentVersion
	err := e.store.Tx(ctx, func(tx *sql.Tx) error {
		number, err := docnum.Generate(ctx, e.store, tx, req.Department, time.Unix(now, 0))
		if err != nil {
			return err
		}

		doc = store.Document{
			DocumentNumber: number,
			Title:          req.Title,
			Description:    req.Description,
			Department:     req.Department,
			Tags:           req.Tags,
			OwnerID:        owner.ID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := e.store.CreateDocument(ctx, tx, &doc); err != nil {
			return err
		}

		if err := audit.Event("DOCUMENT_CREATED", "document", doc.ID).
			Principal(owner.ID, owner.Username).
			Describe("document created").
			ESignature(false).
			Detail("document_number", doc.DocumentNumber).
			Commit(ctx, e.store, tx, now); err != nil {
			return err
		}

		if !req.CreateInitialDraft {
			return nil
		}

		v := &store.DocumentVersion{
			DocumentID:    doc.ID,
			VersionNumber: 1,
			VersionString: initialVersionString,
			Status:        store.StatusDraft,
			IsLatest:      true,
			ContentHash:   contentHash(""),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := e.store.CreateVersion(ctx, tx, v); err != nil {
			return err
		}
		version = v

		return audit.Event("VERSION_CREATED", "version", v.ID).
			Principal(owner.ID, owner.Username).
			Describe("initial draft created").
			ESignature(false).
			Commit(ctx, e.store, tx, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return &doc, version, nil
}
