// tools_comments.go implements MCP tools for the commenting subsystem
// (spec.md §4.6, §6 Comments).
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pharmadocs/dmsd/internal/comment"
)

func registerCommentTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("dmsd_create_comment",
			mcp.WithDescription("Anchor a comment to a selected substring of a non-draft version. Requires Reviewer, Approver, or DMS_Admin."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithString("body", mcp.Required(), mcp.Description("Comment text")),
			mcp.WithString("anchor_text", mcp.Required(), mcp.Description("Verbatim selected substring; the canonical anchor")),
			mcp.WithNumber("anchor_start", mcp.Description("Hint: selection start character offset")),
			mcp.WithNumber("anchor_end", mcp.Description("Hint: selection end character offset")),
			mcp.WithString("anchor_context", mcp.Description("Hint: surrounding context snippet")),
		),
		h.createComment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_edit_comment",
			mcp.WithDescription("Edit a comment's body. Author or any DMS_Admin only."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("comment_id", mcp.Required(), mcp.Description("Comment id")),
			mcp.WithString("body", mcp.Required(), mcp.Description("New comment text")),
		),
		h.editComment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_delete_comment",
			mcp.WithDescription("Delete a comment. Author or any DMS_Admin only."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("comment_id", mcp.Required(), mcp.Description("Comment id")),
		),
		h.deleteComment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_resolve_comment",
			mcp.WithDescription("Mark a comment resolved. Any commenting-capable principal may resolve."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("comment_id", mcp.Required(), mcp.Description("Comment id")),
		),
		h.resolveComment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_unresolve_comment",
			mcp.WithDescription("Reopen a resolved comment. Any commenting-capable principal may unresolve."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("comment_id", mcp.Required(), mcp.Description("Comment id")),
		),
		h.unresolveComment,
	)

	s.AddTool(
		mcp.NewTool("dmsd_list_comments",
			mcp.WithDescription("List a version's comments"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithBoolean("include_resolved", mcp.Description("Include already-resolved comments")),
		),
		h.listComments,
	)
}

func (h *handlers) createComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	doc, err := h.svc.GetDocument(ctx, getString(req, "document_id", ""))
	if err != nil {
		return errResult(err)
	}
	v, err := h.svc.GetVersion(ctx, getString(req, "version_id", ""))
	if err != nil {
		return errResult(err)
	}
	anchor := comment.Anchor{Text: getString(req, "anchor_text", "")}
	if start := getInt(req, "anchor_start", -1); start >= 0 {
		anchor.Start = &start
	}
	if end := getInt(req, "anchor_end", -1); end >= 0 {
		anchor.End = &end
	}
	if c := getStringPtr(req, "anchor_context"); c != nil && *c != "" {
		anchor.Context = c
	}
	c, err := h.svc.CreateComment(ctx, doc, v, p, getString(req, "body", ""), anchor, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(c)
}

func (h *handlers) editComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	c, err := h.svc.EditComment(ctx, getString(req, "comment_id", ""), p, getString(req, "body", ""), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(c)
}

func (h *handlers) deleteComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	if err := h.svc.DeleteComment(ctx, getString(req, "comment_id", ""), p, now()); err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"deleted": true})
}

func (h *handlers) resolveComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	c, err := h.svc.ResolveComment(ctx, getString(req, "comment_id", ""), p, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(c)
}

func (h *handlers) unresolveComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	c, err := h.svc.UnresolveComment(ctx, getString(req, "comment_id", ""), p, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(c)
}

func (h *handlers) listComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	cs, err := h.svc.ListComments(ctx, getString(req, "version_id", ""), getBool(req, "include_resolved", true))
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"comments": cs})
}
