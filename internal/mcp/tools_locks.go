// tools_locks.go implements MCP tools for the edit-lock coordinator
// (spec.md §4.4, §6 Edit Locks).
package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerLockTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("dmsd_acquire_lock",
			mcp.WithDescription("Acquire the exclusive edit lease on a Draft version. Idempotent for the current holder; fails Locked for any other principal."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Draft version id")),
			mcp.WithNumber("timeout_minutes", mcp.Description("Lease timeout in minutes, default 30, max 60")),
			mcp.WithString("session_tag", mcp.Description("Opaque client session tag")),
		),
		h.acquireLock,
	)

	s.AddTool(
		mcp.NewTool("dmsd_heartbeat_lock",
			mcp.WithDescription("Renew an active edit lease. Clients call this roughly every 15 seconds."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithString("lock_token", mcp.Required(), mcp.Description("Lock token returned by acquire")),
			mcp.WithNumber("extend_minutes", mcp.Description("Minutes to extend the lease by")),
		),
		h.heartbeatLock,
	)

	s.AddTool(
		mcp.NewTool("dmsd_release_lock",
			mcp.WithDescription("Release an edit lease. Admins may pass force_admin to release another principal's lease."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
			mcp.WithString("lock_token", mcp.Description("Lock token to release; omit when using force_admin")),
			mcp.WithBoolean("force_admin", mcp.Description("Admin-only: force-release regardless of holder")),
		),
		h.releaseLock,
	)

	s.AddTool(
		mcp.NewTool("dmsd_lock_status",
			mcp.WithDescription("Read-only probe for a version's active edit lease, if any"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("version_id", mcp.Required(), mcp.Description("Version id")),
		),
		h.lockStatus,
	)
}

func (h *handlers) acquireLock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	timeout := time.Duration(getInt(req, "timeout_minutes", 0)) * time.Minute
	var tag *string
	if t := getStringPtr(req, "session_tag"); t != nil && *t != "" {
		tag = t
	}
	lease, err := h.svc.AcquireLock(ctx, doc, v, p, timeout, tag, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(lease)
}

func (h *handlers) heartbeatLock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	extend := time.Duration(getInt(req, "extend_minutes", 15)) * time.Minute
	lease, err := h.svc.HeartbeatLock(ctx, getString(req, "version_id", ""), getString(req, "lock_token", ""), p, extend, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(lease)
}

func (h *handlers) releaseLock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	forced, err := h.svc.ReleaseLock(ctx, getString(req, "version_id", ""), getString(req, "lock_token", ""), p, getBool(req, "force_admin", false), now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"released": true, "forced_by_admin": forced})
}

func (h *handlers) lockStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	lease, err := h.svc.GetLockStatus(ctx, getString(req, "version_id", ""), now())
	if err != nil {
		return errResult(err)
	}
	if lease == nil {
		return jsonResult(map[string]any{"locked": false})
	}
	return jsonResult(map[string]any{"locked": true, "lease": lease})
}
