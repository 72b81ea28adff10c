package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/kasuganosora/statsgate/pkg/resolver"
)

type contextKey string

const ctxKeyMCPClient contextKey = "mcp_client"

// ToolDeps holds shared dependencies for MCP tool handlers
type ToolDeps struct {
	Resolver    resolver.Resolver
	Actions     []string
	RequireAuth bool
	Logger      *zap.Logger
}

// HandleResolve runs one dashboard request and returns the envelope as JSON text.
// Rejected input comes back as an error result carrying the same envelope.
func (d *ToolDeps) HandleResolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := d.requireAuth(ctx); res != nil {
		return res, nil
	}

	req := resolver.Request{
		Action:   request.GetString("action", ""),
		Search:   request.GetString("search", ""),
		Page:     request.GetInt("page", 0),
		PageSize: request.GetInt("page_size", 0),
	}

	env := d.Resolver.Resolve(ctx, req)
	body, err := json.Marshal(env.Response())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode response: %v", err)), nil
	}

	d.logger().Info("mcp tool call",
		zap.String("tool", "dashboard_resolve"),
		zap.String("client", getClient(ctx)),
		zap.String("request_id", env.RequestID),
		zap.String("source", env.Source))

	if env.Visited(resolver.StateRejected) {
		return mcp.NewToolResultError(string(body)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// HandleListActions lists the resolvable actions, one per line
func (d *ToolDeps) HandleListActions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := d.requireAuth(ctx); res != nil {
		return res, nil
	}
	return mcp.NewToolResultText(strings.Join(d.Actions, "\n")), nil
}

func (d *ToolDeps) requireAuth(ctx context.Context) *mcp.CallToolResult {
	if d.RequireAuth && getClient(ctx) == "" {
		return mcp.NewToolResultError("unauthorized: missing or invalid bearer token")
	}
	return nil
}

func (d *ToolDeps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func getClient(ctx context.Context) string {
	client, _ := ctx.Value(ctxKeyMCPClient).(string)
	return client
}
