// tools_attachments.go implements MCP tools for attachment upload, download,
// and deduplication (spec.md §4.8, §6 Attachments).
package mcp

import (
	"context"
	"encoding/base64"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pharmadocs/dmsd/internal/attachment"
)

func registerAttachmentTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("dmsd_upload_attachment",
			mcp.WithDescription("Upload a base64-encoded file as an attachment to a document or version, deduplicated by content SHA-256"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("parent_kind", mcp.Required(), mcp.Description("document or version")),
			mcp.WithString("parent_id", mcp.Required(), mcp.Description("Parent document or version id")),
			mcp.WithString("filename", mcp.Required(), mcp.Description("Original filename")),
			mcp.WithString("content_base64", mcp.Required(), mcp.Description("Base64-encoded file content")),
			mcp.WithString("mime_type", mcp.Description("MIME type")),
		),
		h.uploadAttachment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_get_attachment",
			mcp.WithDescription("Get an attachment's metadata"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("attachment_id", mcp.Required(), mcp.Description("Attachment id")),
		),
		h.getAttachment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_download_attachment",
			mcp.WithDescription("Download an attachment's bytes, base64-encoded, with its original filename"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("attachment_id", mcp.Required(), mcp.Description("Attachment id")),
		),
		h.downloadAttachment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_delete_attachment",
			mcp.WithDescription("Soft-delete an attachment; the underlying file is retained"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("attachment_id", mcp.Required(), mcp.Description("Attachment id")),
		),
		h.deleteAttachment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_list_attachments",
			mcp.WithDescription("List a document's or version's non-deleted attachments"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("parent_kind", mcp.Required(), mcp.Description("document or version")),
			mcp.WithString("parent_id", mcp.Required(), mcp.Description("Parent document or version id")),
		),
		h.listAttachments,
	)
}

func (h *handlers) uploadAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	kind := attachment.ParentKind(getString(req, "parent_kind", ""))
	if kind != attachment.ParentDocument && kind != attachment.ParentVersion {
		return errResult(errInvalidParentKind)
	}
	content, err := base64.StdEncoding.DecodeString(getString(req, "content_base64", ""))
	if err != nil {
		return errResult(err)
	}
	filename := getString(req, "filename", "")
	ext := filepath.Ext(filename)
	a, err := h.svc.UploadAttachment(ctx, kind, getString(req, "parent_id", ""), content, filename, getString(req, "mime_type", ""), p, ext, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(a)
}

func (h *handlers) getAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	a, err := h.svc.GetAttachment(ctx, getString(req, "attachment_id", ""))
	if err != nil {
		return errResult(err)
	}
	return jsonResult(a)
}

func (h *handlers) downloadAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	id := getString(req, "attachment_id", "")
	a, err := h.svc.GetAttachment(ctx, id)
	if err != nil {
		return errResult(err)
	}
	data, filename, err := h.svc.DownloadAttachment(ctx, id, filepath.Ext(a.Filename))
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{
		"filename":       filename,
		"content_base64": base64.StdEncoding.EncodeToString(data),
	})
}

func (h *handlers) deleteAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	if err := h.svc.DeleteAttachment(ctx, getString(req, "attachment_id", ""), p, now()); err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"deleted": true})
}

func (h *handlers) listAttachments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	kind := attachment.ParentKind(getString(req, "parent_kind", ""))
	as, err := h.svc.ListAttachments(ctx, kind, getString(req, "parent_id", ""))
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"attachments": as})
}
