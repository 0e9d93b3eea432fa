// Package exporter gathers the inputs for a DOCX export and records the
// audit entry (spec.md §4.8). The HTML-to-DOCX translation itself is an
// external collaborator (spec.md §1); this package only assembles Metadata
// from a document/version pair and hands the content blob to a Renderer.
package exporter

import (
	"context"
	"fmt"

	"github.com/pharmadocs/dmsd/internal/audit"
	"github.com/pharmadocs/dmsd/internal/store"
)

// Metadata is everything a Renderer needs beyond the raw HTML blob:
// heading/title data and the signatory record for the version being
// exported.
type Metadata struct {
	DocumentNumber string
	Title          string
	VersionString  string
	Status         store.VersionStatus
	EffectiveAt    *int64
	ApprovedBy     *string
	PublishedBy    *string
}

// Renderer converts an HTML blob plus Metadata into DOCX bytes, preserving
// headings, lists, tables, inline formatting, and links (spec.md §4.8). A
// concrete implementation (e.g. shelling out to a converter, or a
// native OOXML writer) lives outside this package.
type Renderer interface {
	Render(ctx context.Context, html string, meta Metadata) ([]byte, error)
}

// Service assembles export inputs and records the audit entry.
type Service struct {
	store    store.Store
	renderer Renderer
}

func New(s store.Store, r Renderer) *Service {
	return &Service{store: s, renderer: r}
}

// Export renders version to DOCX and records an export audit entry
// (spec.md §4.8).
func (s *Service) Export(ctx context.Context, doc *store.Document, v *store.DocumentVersion, principal *store.Principal, now int64) ([]byte, error) {
	meta := Metadata{
		DocumentNumber: doc.DocumentNumber,
		Title:          doc.Title,
		VersionString:  v.VersionString,
		Status:         v.Status,
		EffectiveAt:    v.EffectiveAt,
		ApprovedBy:     v.ApprovedBy,
		PublishedBy:    v.PublishedBy,
	}

	bytes, err := s.renderer.Render(ctx, v.Content, meta)
	if err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}

	_ = audit.Event("VERSION_EXPORTED", "version", v.ID).
		Principal(principal.ID, principal.Username).
		Describe("exported to docx").
		ESignature(false).
		Detail("document_number", doc.DocumentNumber).
		Detail("version_string", v.VersionString).
		Best(ctx, s.store, now)

	return bytes, nil
}
