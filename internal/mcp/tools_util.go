// tools_util.go provides helper functions for MCP tool parameter extraction
// and principal resolution, centralising the boilerplate every handler
// needs. Grounded on the teacher's tools_util.go: permissive extraction
// (return a default rather than erroring) because an LLM omitting an
// optional parameter shouldn't cause a cryptic failure.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pharmadocs/dmsd/internal/store"
)

func now() int64 { return time.Now().Unix() }

// errMissingToken is returned by tools that require a "token" argument
// when the caller omits it.
var errMissingToken = errors.New(`missing required argument "token"`)

// errInvalidParentKind is returned when an attachment tool's parent_kind
// argument is neither "document" nor "version".
var errInvalidParentKind = errors.New(`parent_kind must be "document" or "version"`)

// errMissingLoginArgs is returned when dmsd_login is missing username or
// credential.
var errMissingLoginArgs = errors.New("username and credential are required")

// getString returns a string parameter or the default if not present.
func getString(req mcp.CallToolRequest, name, def string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return def
}

// getBool returns a boolean parameter or the default if not present.
func getBool(req mcp.CallToolRequest, name string, def bool) bool {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}

// getInt returns an integer parameter or the default. Handles the JSON
// number type mcp-go decodes arguments into.
func getInt(req mcp.CallToolRequest, name string, def int) int {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}
	if v, ok := args[name].(float64); ok {
		return int(v)
	}
	return def
}

// getStringPtr returns a pointer to the parameter's value, or nil if the
// parameter was omitted. Used for optional patch/comment fields that must
// be distinguishable from "explicitly set to empty".
func getStringPtr(req mcp.CallToolRequest, name string) *string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	v, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &v
}

// getStrings returns a comma-separated list parameter split into a slice,
// skipping empty entries. dmsd accepts tag sets as "alpha, beta, gamma"
// rather than a JSON array, since not every MCP client round-trips array
// parameters cleanly.
func getStrings(req mcp.CallToolRequest, name string) []string {
	raw := getString(req, name, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// jsonResult wraps a value as an MCP text result with JSON encoding.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errResult converts a Go error into an MCP tool error result. Every
// handler returns (result, nil) rather than (nil, err) so a failed
// lifecycle check reaches the LLM as actionable text instead of aborting
// the protocol round-trip, matching the teacher's error-handling design.
func errResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// resolvePrincipal resolves the bearer token every authenticated tool call
// carries into the acting Principal (spec.md §6 Authentication, the first
// step any transport takes before calling an operation).
func resolvePrincipal(ctx context.Context, h *handlers, req mcp.CallToolRequest) (*store.Principal, *mcp.CallToolResult, error) {
	token := getString(req, "token", "")
	if token == "" {
		r, _ := errResult(errMissingToken)
		return nil, r, nil
	}
	p, err := h.svc.ResolvePrincipal(ctx, token, now())
	if err != nil {
		r, _ := errResult(err)
		return nil, r, nil
	}
	return p, nil, nil
}
