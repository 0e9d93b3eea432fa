// tools_versions.go implements MCP tools for the version lifecycle (spec.md
// §4.3, §6 Versions): content save, diff, and every e-signature-gated
// transition.
package mcp

import (
	"context"
	"encoding/base64"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pharmadocs/dmsd/internal/lifecycle"
	"github.com/pharmadocs/dmsd/internal/store"
)

func registerVersionTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("dmsd_create_next_version",
			mcp.WithDescription("Create a new Draft from an Effective parent version (requires no existing Draft on the document, I2)"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
			mcp.WithString("parent_version_id", mcp.Required(), mcp.Description("Effective version id to branch from")),
			mcp.WithString("change_type", mcp.Required(), mcp.Description("Minor or Major")),
			mcp.WithString("change_reason", mcp.Required(), mcp.Description("10-1000 character change reason")),
		),
		h.createNextVersion,
	)

	s.AddTool(
		mcp.NewTool("dmsd_get_version",
			mcp.WithDescription("Get a version by id"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
		),
		h.getVersion,
	)

	s.AddTool(
		mcp.NewTool("dmsd_list_versions",
			mcp.WithDescription("List every version of a document, newest first, regardless of status"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		),
		h.listVersions,
	)

	s.AddTool(
		mcp.NewTool("dmsd_diff_versions",
			mcp.WithDescription("Compute a textual diff between two versions' content"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("old_version_id", mcp.Required(), mcp.Description("Earlier version id")),
			mcp.WithString("new_version_id", mcp.Required(), mcp.Description("Later version id")),
		),
		h.diffVersions,
	)

	s.AddTool(
		mcp.NewTool("dmsd_update_draft_metadata",
			mcp.WithDescription("Update a Draft's non-content fields (change summary, change type, change reason); requires no lock"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Draft version id")),
			mcp.WithString("change_summary", mcp.Description("New change summary")),
			mcp.WithString("change_type", mcp.Description("Minor or Major")),
			mcp.WithString("change_reason", mcp.Description("10-1000 character change reason")),
		),
		h.updateDraftMetadata,
	)

	s.AddTool(
		mcp.NewTool("dmsd_save_content",
			mcp.WithDescription("Save new HTML content to a locked Draft version, with optimistic content-hash concurrency checking"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Draft version id")),
			mcp.WithString("content", mcp.Required(), mcp.Description("New HTML content")),
			mcp.WithString("lock_token", mcp.Required(), mcp.Description("Edit-lock token held by the caller")),
			mcp.WithString("expected_hash", mcp.Description("Content hash the caller last observed, for conflict detection")),
			mcp.WithBoolean("is_autosave", mcp.Description("Mark this save as an autosave for audit coalescing")),
		),
		h.saveContent,
	)

	s.AddTool(
		mcp.NewTool("dmsd_submit",
			mcp.WithDescription("Submit a Draft for review (Draft -> Under Review); requires Author/Admin ownership and e-signature"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Draft version id")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("E-signature credential")),
			mcp.WithString("comment", mcp.Description("Optional submission comment")),
		),
		h.submit,
	)

	s.AddTool(
		mcp.NewTool("dmsd_approve_review",
			mcp.WithDescription("Advance a version from Under Review to Pending Approval; requires Reviewer/Admin and e-signature"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("E-signature credential")),
			mcp.WithString("comment", mcp.Description("Optional review comment")),
		),
		h.approveReview,
	)

	s.AddTool(
		mcp.NewTool("dmsd_request_changes",
			mcp.WithDescription("Send a version from Under Review back to Draft with a required reason; requires Reviewer/Admin and e-signature"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("E-signature credential")),
			mcp.WithString("reason", mcp.Required(), mcp.Description("Required 10-1000 character reason")),
		),
		h.requestChanges,
	)

	s.AddTool(
		mcp.NewTool("dmsd_approve",
			mcp.WithDescription("Advance a version from Pending Approval to Approved; requires Approver/Admin and e-signature"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("E-signature credential")),
			mcp.WithString("comment", mcp.Description("Optional approval comment")),
		),
		h.approve,
	)

	s.AddTool(
		mcp.NewTool("dmsd_reject",
			mcp.WithDescription("Send a version from Pending Approval back to Draft with a required reason; requires Approver/Admin and e-signature"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("E-signature credential")),
			mcp.WithString("reason", mcp.Required(), mcp.Description("Required 10-1000 character reason")),
		),
		h.reject,
	)

	s.AddTool(
		mcp.NewTool("dmsd_publish",
			mcp.WithDescription("Publish an Approved version to Effective, atomically obsoleting the document's prior Effective version (I1). Admin only, e-signature required."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Approved version id")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("E-signature credential")),
			mcp.WithNumber("effective_date", mcp.Description("Unix timestamp to back-date effective_at; defaults to now")),
		),
		h.publish,
	)

	s.AddTool(
		mcp.NewTool("dmsd_archive",
			mcp.WithDescription("Archive an Effective or Obsolete version. Admin only, e-signature required."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("E-signature credential")),
		),
		h.archive,
	)

	s.AddTool(
		mcp.NewTool("dmsd_export_version",
			mcp.WithDescription("Render a version to DOCX and return it base64-encoded"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
		),
		h.exportVersion,
	)
}

func optionalComment(req mcp.CallToolRequest, name string) *string {
	v := getStringPtr(req, name)
	if v != nil && *v == "" {
		return nil
	}
	return v
}

func (h *handlers) createNextVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	doc, err := h.svc.GetDocument(ctx, getString(req, "document_id", ""))
	if err != nil {
		return errResult(err)
	}
	v, err := h.svc.CreateNextVersion(ctx, doc, getString(req, "parent_version_id", ""), p,
		store.ChangeType(getString(req, "change_type", "")), getString(req, "change_reason", ""), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) getVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	v, err := h.svc.GetVersion(ctx, getString(req, "version_id", ""))
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) listVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	vs, err := h.svc.ListVersions(ctx, getString(req, "document_id", ""))
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"versions": vs})
}

func (h *handlers) diffVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	d, err := h.svc.DiffVersions(ctx, getString(req, "old_version_id", ""), getString(req, "new_version_id", ""))
	if err != nil {
		return errResult(err)
	}
	return jsonResult(d)
}

func (h *handlers) updateDraftMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	doc, err := h.svc.GetDocument(ctx, getString(req, "document_id", ""))
	if err != nil {
		return errResult(err)
	}
	patch := lifecycle.DraftMetadataPatch{
		ChangeSummary: getStringPtr(req, "change_summary"),
		ChangeReason:  getStringPtr(req, "change_reason"),
	}
	if ct := getStringPtr(req, "change_type"); ct != nil {
		v := store.ChangeType(*ct)
		patch.ChangeType = &v
	}
	v, err := h.svc.UpdateDraftMetadata(ctx, doc, getString(req, "version_id", ""), p, patch, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) saveContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	var expected *string
	if v := getStringPtr(req, "expected_hash"); v != nil && *v != "" {
		expected = v
	}
	result, err := h.svc.SaveContent(ctx, getString(req, "version_id", ""), p,
		getString(req, "lock_token", ""), getString(req, "content", ""), expected,
		getBool(req, "is_autosave", false), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(result)
}

func (h *handlers) submit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	doc, err := h.svc.GetDocument(ctx, getString(req, "document_id", ""))
	if err != nil {
		return errResult(err)
	}
	v, err := h.svc.Submit(ctx, doc, getString(req, "version_id", ""), p,
		getString(req, "credential", ""), optionalComment(req, "comment"), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) approveReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	v, err := h.svc.ApproveReview(ctx, getString(req, "version_id", ""), p,
		getString(req, "credential", ""), optionalComment(req, "comment"), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) requestChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	v, err := h.svc.RequestChanges(ctx, getString(req, "version_id", ""), p,
		getString(req, "credential", ""), getString(req, "reason", ""), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) approve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	v, err := h.svc.Approve(ctx, getString(req, "version_id", ""), p,
		getString(req, "credential", ""), optionalComment(req, "comment"), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) reject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	v, err := h.svc.Reject(ctx, getString(req, "version_id", ""), p,
		getString(req, "credential", ""), getString(req, "reason", ""), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) publish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	doc, err := h.svc.GetDocument(ctx, getString(req, "document_id", ""))
	if err != nil {
		return errResult(err)
	}
	var effectiveAt *int64
	if n := int64(getInt(req, "effective_date", 0)); n != 0 {
		effectiveAt = &n
	}
	v, err := h.svc.Publish(ctx, doc, getString(req, "version_id", ""), p,
		getString(req, "credential", ""), effectiveAt, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) archive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	v, err := h.svc.Archive(ctx, getString(req, "version_id", ""), p, getString(req, "credential", ""), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(v)
}

func (h *handlers) exportVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	doc, err := h.svc.GetDocument(ctx, getString(req, "document_id", ""))
	if err != nil {
		return errResult(err)
	}
	data, err := h.svc.ExportVersion(ctx, doc, getString(req, "version_id", ""), p, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"docx_base64": base64.StdEncoding.EncodeToString(data)})
}
