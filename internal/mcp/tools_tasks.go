// tools_tasks.go implements MCP tools for the task feed and audit log
// (spec.md §4.7, §6 Tasks & Audit).
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pharmadocs/dmsd/internal/store"
)

func registerTaskTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("dmsd_pending_tasks",
			mcp.WithDescription("Get the documents requiring the caller's action, derived fresh from current version states"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
		),
		h.pendingTasks,
	)

	s.AddTool(
		mcp.NewTool("dmsd_list_audit",
			mcp.WithDescription("List append-only audit entries, filtered and paginated"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer session token")),
			mcp.WithString("principal_id", mcp.Description("Filter by acting principal id")),
			mcp.WithString("action", mcp.Description("Filter by action code, e.g. VERSION_PUBLISHED")),
			mcp.WithString("entity_kind", mcp.Description("Filter by entity kind, e.g. version")),
			mcp.WithNumber("since", mcp.Description("Unix timestamp lower bound")),
			mcp.WithNumber("until", mcp.Description("Unix timestamp upper bound")),
			mcp.WithNumber("offset", mcp.Description("Pagination offset")),
			mcp.WithNumber("limit", mcp.Description("Pagination limit")),
		),
		h.listAudit,
	)
}

func (h *handlers) pendingTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	tasks, err := h.svc.GetPendingTasks(ctx, p)
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"tasks": tasks})
}

func (h *handlers) listAudit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errRes, err := resolvePrincipal(ctx, h, req); errRes != nil || err != nil {
		return errRes, err
	}
	f := store.AuditFilter{
		PrincipalID: getString(req, "principal_id", ""),
		Action:      getString(req, "action", ""),
		EntityKind:  getString(req, "entity_kind", ""),
		Offset:      getInt(req, "offset", 0),
		Limit:       getInt(req, "limit", 50),
	}
	if v := getInt(req, "since", 0); v != 0 {
		n := int64(v)
		f.Since = &n
	}
	if v := getInt(req, "until", 0); v != 0 {
		n := int64(v)
		f.Until = &n
	}
	entries, total, err := h.svc.ListAuditEntries(ctx, f)
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"entries": entries, "total": total})
}
