// tools_auth.go implements MCP tools for login, session validation, and
// e-signature verification (spec.md §4.2, §6 Authentication).
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerAuthTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("dmsd_login",
			mcp.WithDescription("Authenticate and obtain a bearer session token. Fails with a session-conflict error if the principal already has an active session, unless force is set."),
			mcp.WithString("username", mcp.Required(), mcp.Description("Principal username")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("Plaintext credential")),
			mcp.WithBoolean("force", mcp.Description("Invalidate any existing active session for this principal")),
		),
		h.login,
	)

	s.AddTool(
		mcp.NewTool("dmsd_validate_session",
			mcp.WithDescription("Check whether a bearer token is still a live session"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer token to validate")),
		),
		h.validateSession,
	)

	s.AddTool(
		mcp.NewTool("dmsd_logout",
			mcp.WithDescription("Invalidate the session behind a bearer token"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer token to invalidate")),
		),
		h.logout,
	)

	s.AddTool(
		mcp.NewTool("dmsd_verify_esignature",
			mcp.WithDescription("Re-verify a principal's credential without mutating session state. Every lifecycle transition tool also takes a credential and performs this check internally before mutating."),
			mcp.WithString("token", mcp.Required(), mcp.Description("Bearer token of the acting principal")),
			mcp.WithString("credential", mcp.Required(), mcp.Description("Plaintext credential to re-verify")),
		),
		h.verifyESignature,
	)
}

func (h *handlers) login(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := getString(req, "username", "")
	credential := getString(req, "credential", "")
	if username == "" || credential == "" {
		return errResult(errMissingLoginArgs)
	}
	force := getBool(req, "force", false)

	session, err := h.svc.Login(ctx, username, credential, force, now())
	if err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{
		"token":      session.Token,
		"username":   session.Username,
		"roles":      session.Roles,
		"issued_at":  session.IssuedAt,
		"expires_at": session.ExpiresAt,
	})
}

func (h *handlers) validateSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := getString(req, "token", "")
	result, err := h.svc.ValidateSession(ctx, token, now())
	if err != nil {
		return errResult(err)
	}
	out := map[string]any{"valid": result.Valid}
	if result.Reason != "" {
		out["reason"] = result.Reason
	}
	return jsonResult(out)
}

func (h *handlers) logout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	if err := h.svc.Logout(ctx, p.ID, now()); err != nil {
		return errResult(err)
	}
	return jsonResult(map[string]any{"logged_out": true})
}

func (h *handlers) verifyESignature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes, err := resolvePrincipal(ctx, h, req)
	if errRes != nil || err != nil {
		return errRes, err
	}
	credential := getString(req, "credential", "")
	if err := h.svc.VerifyESignature(ctx, p, credential); err != nil {
		return jsonResult(map[string]any{"ok": false, "error": err.Error()})
	}
	return jsonResult(map[string]any{"ok": true})
}
