package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kasuganosora/statsgate/pkg/config"
	"github.com/kasuganosora/statsgate/pkg/resolver"
)

// Server is the MCP protocol server
type Server struct {
	cfg     config.MCPConfig
	clients []config.APIClientConfig
	deps    *ToolDeps
	logger  *zap.Logger
	http    *mcpserver.StreamableHTTPServer
}

// NewServer creates a new MCP server. Configured API clients make bearer auth mandatory.
func NewServer(cfg config.MCPConfig, clients []config.APIClientConfig, res resolver.Resolver, actions []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		clients: clients,
		logger:  logger,
	}
	s.deps = &ToolDeps{
		Resolver:    res,
		Actions:     actions,
		RequireAuth: hasKeys(clients),
		Logger:      logger,
	}

	// Create Streamable HTTP transport with auth
	s.http = mcpserver.NewStreamableHTTPServer(
		s.MCPServer(),
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithHTTPContextFunc(s.authContextFunc()),
	)
	return s
}

// MCPServer builds the MCP server with the dashboard tools registered.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(
		"statsgate",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	resolveTool := mcp.NewTool("dashboard_resolve",
		mcp.WithDescription("Resolve dashboard data for an action. Returns the JSON response envelope with data, source, statistics and errors."),
		mcp.WithString("action", mcp.Description("The dashboard action, e.g. inventory or statistics"), mcp.Required()),
		mcp.WithString("search", mcp.Description("Optional free-text search over sku and name")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
		mcp.WithNumber("page_size", mcp.Description("Rows per page")),
	)

	actionsTool := mcp.NewTool("dashboard_actions",
		mcp.WithDescription("List the dashboard actions this service can resolve"),
	)

	mcpSrv.AddTool(resolveTool, s.deps.HandleResolve)
	mcpSrv.AddTool(actionsTool, s.deps.HandleListActions)
	return mcpSrv
}

// Start starts the MCP server (blocking)
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("starting MCP server", zap.String("addr", addr))
	return s.http.Start(addr)
}

// Shutdown stops the MCP transport.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// authContextFunc returns an HTTP context function that validates Bearer token auth.
func (s *Server) authContextFunc() mcpserver.HTTPContextFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			return ctx
		}

		// Expect "Bearer <api_key>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return ctx
		}

		apiKey := strings.TrimSpace(parts[1])
		for _, c := range s.clients {
			if c.Key != "" && c.Key == apiKey {
				return context.WithValue(ctx, ctxKeyMCPClient, c.Name)
			}
		}

		s.logger.Debug("mcp bearer token rejected")
		return ctx
	}
}

func hasKeys(clients []config.APIClientConfig) bool {
	for _, c := range clients {
		if c.Key != "" {
			return true
		}
	}
	return false
}
