// tools_documents.go implements MCP tools for document CRUD (spec.md §6
// Documents), mirroring the CLI's `dmsd doc` command family but returning
// structured JSON for LLM consumption.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pharmadocs/dmsd/internal/dms"
	"github.com/pharmadocs/dmsd/internal/store"
)

func registerDocumentTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("dmsd_create_document",
			mcp.WithDescription("Create a new SOP document, optionally with its v0.1 initial Draft version, in one transaction"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
			mcp.WithString("description", mcp.Description("Document description")),
			mcp.WithString("department", mcp.Required(), mcp.Description("Four-letter uppercase department code")),
			mcp.WithString("tags", mcp.Description("Comma-separated tag list")),
			mcp.WithBoolean("create_initial_draft", mcp.Description("Also create the v0.1 Draft version")),
		),
		h.createDocument,
	)

	s.AddTool(
		mcp.NewTool("dmsd_list_documents",
			mcp.WithDescription("List documents, filtered and paginated"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("department", mcp.Description("Filter by department code")),
			mcp.WithString("tag", mcp.Description("Filter by tag")),
			mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted documents")),
			mcp.WithNumber("offset", mcp.Description("Pagination offset")),
			mcp.WithNumber("limit", mcp.Description("Pagination limit")),
		),
		h.listDocuments,
	)

	s.AddTool(
		mcp.NewTool("dmsd_get_document",
			mcp.WithDescription("Get a document by id"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		),
		h.getDocument,
	)

	s.AddTool(
		mcp.NewTool("dmsd_update_document",
			mcp.WithDescription("Patch a document's non-version metadata (title, description, department, tags)"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
			mcp.WithString("title", mcp.Description("New title")),
			mcp.WithString("description", mcp.Description("New description")),
			mcp.WithString("department", mcp.Description("New department code")),
			mcp.WithString("tags", mcp.Description("Comma-separated replacement tag list")),
		),
		h.updateDocument,
	)

	s.AddTool(
		mcp.NewTool("dmsd_delete_document",
			mcp.WithDescription("Soft-delete a document; it is hidden from listings but retained for audit"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		),
		h.deleteDocument,
	)
}

func (h *handlers) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}

	r := dms.CreateDocumentRequest{
		Title:              getString(req, "title", ""),
		Description:        getString(req, "description", ""),
		Department:         getString(req, "department", ""),
		Tags:               getStrings(req, "tags"),
		CreateInitialDraft: getBool(req, "create_initial_draft", false),
	}

	doc, version, err := h.svc.CreateDocument(ctx, r, p, now())
	if err != nil {
		return errResult(err)
	}
	out := map[string]any{"document": doc}
	if version != nil {
		out["initial_version"] = version
	}
	return jsonResult(out)
}

func (h *handlers) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}

	f := store.DocumentFilter{
		Department:     getString(req, "department", ""),
		Tag:            getString(req, "tag", ""),
		IncludeDeleted: getBool(req, "include_deleted", false),
		Offset:         getInt(req, "offset", 0),
		Limit:          getInt(req, "limit", 50),
	}
	docs, total, err := h.svc.ListDocuments(ctx, f)
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"documents": docs, "total": total})
}

func (h *handlers) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	doc, err := h.svc.GetDocument(ctx, getString(req, "document_id", ""))
	if err != nil {
		return errResult(err)
	}
	versions, err := h.svc.ListVersions(ctx, doc.ID)
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"document": doc, "versions": versions})
}

func (h *handlers) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	patch := dms.UpdateDocumentMetadataRequest{
		Title:       getStringPtr(req, "title"),
		Description: getStringPtr(req, "description"),
		Department:  getStringPtr(req, "department"),
	}
	if tags := getStrings(req, "tags"); tags != nil {
		patch.Tags = tags
	}
	if err := h.svc.UpdateDocumentMetadata(ctx, getString(req, "document_id", ""), patch); err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"updated": true})
}

func (h *handlers) deleteDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	if err := h.svc.SoftDeleteDocument(ctx, getString(req, "document_id", "")); err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"deleted": true})
}
