package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/statsgate/pkg/config"
	"github.com/kasuganosora/statsgate/pkg/credential"
	"github.com/kasuganosora/statsgate/pkg/plan"
	"github.com/kasuganosora/statsgate/pkg/resolver"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

func makeCallToolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var arguments interface{}
	if args != nil {
		arguments = map[string]any(args)
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: arguments,
		},
	}
}

func setupTestDeps(t *testing.T) *ToolDeps {
	t.Helper()
	connector := credential.ConnectorFunc(func(context.Context, domain.ConnectionDescriptor) (domain.Handle, error) {
		return nil, domain.NewErrConnectionFailed(domain.ConnectionDescriptor{Name: "none"}, assert.AnError)
	})
	pipeline := resolver.New(resolver.Settings{
		Descriptors: []domain.ConnectionDescriptor{{Name: "primary", Driver: domain.DriverMySQL}},
		Catalogs:    plan.DefaultCatalogs(),
	}, connector)
	return &ToolDeps{Resolver: pipeline, Actions: plan.DefaultCatalogs().Actions()}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return textContent.Text
}

func TestHandleResolve_Fallback(t *testing.T) {
	deps := setupTestDeps(t)

	result, err := deps.HandleResolve(context.Background(), makeCallToolRequest(map[string]interface{}{
		"action": "inventory",
		"page":   float64(2),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var resp resolver.Response
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, domain.SourceEmergencyFallback, resp.Source)
	assert.Equal(t, 1, resp.Count)
	assert.NotEmpty(t, resp.Errors)
}

func TestHandleResolve_Rejected(t *testing.T) {
	deps := setupTestDeps(t)

	result, err := deps.HandleResolve(context.Background(), makeCallToolRequest(map[string]interface{}{"action": "payroll"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var resp resolver.Response
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Source)
	assert.Contains(t, resp.Message, "payroll")
}

func TestHandleResolve_ForwardsArguments(t *testing.T) {
	stub := &stubResolver{}
	deps := &ToolDeps{Resolver: stub}

	_, err := deps.HandleResolve(context.Background(), makeCallToolRequest(map[string]interface{}{
		"action":    "inventory",
		"search":    "lamp",
		"page":      float64(3),
		"page_size": float64(20),
	}))
	require.NoError(t, err)
	assert.Equal(t, resolver.Request{Action: "inventory", Search: "lamp", Page: 3, PageSize: 20}, stub.got)
}

func TestHandleListActions(t *testing.T) {
	deps := setupTestDeps(t)
	result, err := deps.HandleListActions(context.Background(), makeCallToolRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "inventory\nstatistics", resultText(t, result))
}

func TestRequireAuth_Unauthenticated(t *testing.T) {
	deps := setupTestDeps(t)
	deps.RequireAuth = true

	result, err := deps.HandleResolve(context.Background(), makeCallToolRequest(map[string]interface{}{"action": "inventory"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unauthorized")

	result, err = deps.HandleListActions(context.Background(), makeCallToolRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	ctx := context.WithValue(context.Background(), ctxKeyMCPClient, "dashboard")
	result, err = deps.HandleListActions(ctx, makeCallToolRequest(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestAuthContextFunc(t *testing.T) {
	s := NewServer(config.MCPConfig{}, []config.APIClientConfig{
		{Name: "dashboard", Key: "valid-key"},
		{Name: "unset"},
	}, &stubResolver{}, nil, nil)
	assert.True(t, s.deps.RequireAuth)
	authFn := s.authContextFunc()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no auth header", "", ""},
		{"invalid auth format", "Basic abc123", ""},
		{"key not found", "Bearer wrong-key", ""},
		{"empty bearer", "Bearer ", ""},
		{"valid key", "Bearer valid-key", "dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/mcp", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, getClient(authFn(context.Background(), r)))
		})
	}
}

func TestNewServer_NoClients(t *testing.T) {
	s := NewServer(config.MCPConfig{}, nil, &stubResolver{}, []string{"inventory"}, nil)
	assert.False(t, s.deps.RequireAuth)
	assert.NotNil(t, s.MCPServer())
}

type stubResolver struct {
	got resolver.Request
}

func (s *stubResolver) Resolve(_ context.Context, req resolver.Request) *resolver.Envelope {
	s.got = req
	return &resolver.Envelope{Success: true, Source: domain.SourceEmergencyFallback}
}
