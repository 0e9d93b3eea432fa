// Package dms is the orchestrator (C10, spec.md §2): a single Service type
// exposing every operation in spec.md §6 as a method, wiring together the
// session gate, RBAC, edit-lock coordinator, lifecycle engine, commenting,
// attachments, export, and task feed over one Store. cmd/ and internal/mcp
// are two conforming transports over these same methods, mirroring how the
// teacher exposes internal/document.Service through both cobra and MCP
// without duplicating logic.
package dms

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/pharmadocs/dmsd/internal/attachment"
	"github.com/pharmadocs/dmsd/internal/auth"
	"github.com/pharmadocs/dmsd/internal/comment"
	"github.com/pharmadocs/dmsd/internal/config"
	"github.com/pharmadocs/dmsd/internal/docnum"
	"github.com/pharmadocs/dmsd/internal/exporter"
	"github.com/pharmadocs/dmsd/internal/lifecycle"
	"github.com/pharmadocs/dmsd/internal/lock"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/pharmadocs/dmsd/internal/taskfeed"
)

// validate is shared across request-struct checks; a *validator.Validate is
// safe for concurrent use once built, per the library's own contract.
var validate = validator.New()

// Service is the DMS orchestrator. All of its methods are safe for
// concurrent use; mutating operations serialize through the underlying
// store's own transactions, not through any lock held here.
type Service struct {
	store store.Store
	cfg   *config.Config

	gate        *auth.Gate
	locks       *lock.Coordinator
	lifecycle   *lifecycle.Engine
	comments    *comment.Service
	attachments *attachment.Service
	exporter    *exporter.Service
	tasks       *taskfeed.Service
	departments *docnum.Registry
}

// New builds a Service over an already-opened Store. blobs and renderer are
// the two external collaborators this deployment supplies: attachment byte
// storage and DOCX rendering.
func New(s store.Store, cfg *config.Config, blobs attachment.Blobs, renderer exporter.Renderer) *Service {
	gate := auth.New(s).WithSessionTTL(cfg.SessionTTL())
	locks := lock.New(s)
	return &Service{
		store:       s,
		cfg:         cfg,
		gate:        gate,
		locks:       locks,
		lifecycle:   lifecycle.New(s, gate, locks).WithAutosaveCoalesceEvery(cfg.AutosaveCoalesceDecile()),
		comments:    comment.New(s),
		attachments: attachment.New(s, blobs),
		exporter:    exporter.New(s, renderer),
		tasks:       taskfeed.New(s),
		departments: docnum.NewRegistry(cfg.Departments),
	}
}

// Close checkpoints the WAL and closes the underlying store, mirroring the
// teacher's document.Service.Close shutdown sequence.
func (s *Service) Close() error {
	_ = s.store.Checkpoint(context.Background())
	return s.store.Close()
}

// ResolvePrincipal returns the principal bound to an active session token,
// the common first step every transport takes before calling an operation
// below.
func (s *Service) ResolvePrincipal(ctx context.Context, token string, now int64) (*store.Principal, error) {
	result, err := s.gate.ValidateSession(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, sessionInvalid(result.Reason)
	}
	return result.Principal, nil
}
