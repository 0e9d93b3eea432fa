// Package mcp implements the Model Context Protocol server, exposing dmsd's
// lifecycle operations to LLM-assisted SOP review workflows. It is the
// second conforming transport over internal/dms.Service, alongside cmd/'s
// cobra surface, generalized from the teacher's internal/mcp package (which
// exposes its own document.Service the same way).
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/pharmadocs/dmsd/internal/attachment"
	"github.com/pharmadocs/dmsd/internal/config"
	"github.com/pharmadocs/dmsd/internal/dms"
	"github.com/pharmadocs/dmsd/internal/exporter"
	"github.com/pharmadocs/dmsd/internal/store"
)

// Version is advertised to clients for capability negotiation.
const Version = "1.0.0"

// passthroughRenderer is the MCP server's concrete exporter.Renderer,
// mirroring cmd's docxRenderer: the HTML-to-DOCX translation is an external
// collaborator (spec.md §4.8), so this wraps the HTML with a heading
// comment rather than producing real OOXML.
type passthroughRenderer struct{}

func (passthroughRenderer) Render(_ context.Context, html string, meta exporter.Metadata) ([]byte, error) {
	header := fmt.Sprintf("<!-- %s %s (%s) -->\n", meta.DocumentNumber, meta.VersionString, meta.Status)
	return []byte(header + html), nil
}

// Serve starts the MCP server over stdio. It opens its own store and
// Service, independent of any cobra-invoked instance, the same way the
// teacher's "serve" command manages its own service lifecycle rather than
// sharing cmd's lazily-opened one.
func Serve(cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	dsn := cfg.StoreDSN()
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	st, err := store.Open(dsn)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := st.Init(); err != nil {
		st.Close()
		return fmt.Errorf("initialize store: %w", err)
	}

	blobsDir := filepath.Join(filepath.Dir(dsn), "blobs")
	blobs, err := attachment.NewFSBlobs(blobsDir)
	if err != nil {
		st.Close()
		return fmt.Errorf("open attachment store: %w", err)
	}

	svc := dms.New(st, cfg, blobs, passthroughRenderer{})
	defer svc.Close()

	h := &handlers{svc: svc}

	s := server.NewMCPServer(
		"dmsd",
		Version,
		server.WithToolCapabilities(true),
	)

	registerTools(s, h)

	slog.Info("dmsd MCP server ready", "version", Version, "transport", "stdio")

	err = server.ServeStdio(s)
	if errors.Is(err, context.Canceled) {
		slog.Info("server stopped")
		return nil
	}
	return err
}

// handlers provides MCP request handlers with access to the DMS service.
type handlers struct {
	svc *dms.Service
}

// registerTools exposes dmsd operations as MCP tools for LLM invocation.
// Every tool surfaced here is a thin argument-marshaling wrapper over the
// same internal/dms.Service methods cmd/ calls, so MCP-driven and CLI-driven
// workflows observe identical lifecycle semantics and audit trails.
func registerTools(s *server.MCPServer, h *handlers) {
	registerAuthTools(s, h)
	registerDocumentTools(s, h)
	registerVersionTools(s, h)
	registerLockTools(s, h)
	registerCommentTools(s, h)
	registerAttachmentTools(s, h)
	registerTaskTools(s, h)
}
