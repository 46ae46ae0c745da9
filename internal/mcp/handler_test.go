package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/cache"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/config"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

func newTestMCPServer(t *testing.T) (*MCPServer, *config.Store) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := service.NewGateway(store, cache.New(time.Minute, 16), logger, 5*time.Second)
	return NewMCPServer(gateway, store, logger), store
}

func callToolRequest(args map[string]interface{}) mcplib.CallToolRequest {
	req := mcplib.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result content")
	}
	tc, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", result.Content[0])
	}
	return tc.Text
}

func TestJQLValidateTool(t *testing.T) {
	s, _ := newTestMCPServer(t)
	ctx := context.Background()

	result, err := s.handleJQLValidate(ctx, callToolRequest(map[string]interface{}{
		"query": `project = PROJ AND testType = Manual`,
	}))
	if err != nil {
		t.Fatalf("handleJQLValidate: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}

	var resp struct {
		Valid bool   `json:"valid"`
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(textContent(t, result)), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Valid {
		t.Error("valid = false")
	}
	if resp.Query != `project = PROJ AND testType = Manual` {
		t.Errorf("query = %q", resp.Query)
	}
}

func TestJQLValidateToolRejection(t *testing.T) {
	s, _ := newTestMCPServer(t)

	result, err := s.handleJQLValidate(context.Background(), callToolRequest(map[string]interface{}{
		"query": `project = X UNION SELECT * FROM users`,
	}))
	if err != nil {
		t.Fatalf("handleJQLValidate: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for injection attempt")
	}
	text := textContent(t, result)
	if !strings.Contains(text, "dangerous_pattern") {
		t.Errorf("rejection text = %q, want kind in message", text)
	}
}

func TestJQLValidateToolMissingParam(t *testing.T) {
	s, _ := newTestMCPServer(t)

	result, err := s.handleJQLValidate(context.Background(), callToolRequest(nil))
	if err != nil {
		t.Fatalf("handleJQLValidate: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing query parameter")
	}
}

func TestJQLEscapeTool(t *testing.T) {
	s, _ := newTestMCPServer(t)

	result, err := s.handleJQLEscape(context.Background(), callToolRequest(map[string]interface{}{
		"value": `summary with "quotes" and \backslash`,
	}))
	if err != nil {
		t.Fatalf("handleJQLEscape: %v", err)
	}

	var resp struct {
		Escaped string `json:"escaped"`
	}
	if err := json.Unmarshal([]byte(textContent(t, result)), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(resp.Escaped, `\"quotes\"`) {
		t.Errorf("escaped = %q", resp.Escaped)
	}
}

func TestGraphQLValidateTool(t *testing.T) {
	s, _ := newTestMCPServer(t)
	ctx := context.Background()

	result, err := s.handleGraphQLValidate(ctx, callToolRequest(map[string]interface{}{
		"document": `query { getTests(limit: 10) { total } }`,
		"variables": map[string]interface{}{
			"limit": float64(10),
		},
	}))
	if err != nil {
		t.Fatalf("handleGraphQLValidate: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(t, result))
	}

	result, err = s.handleGraphQLValidate(ctx, callToolRequest(map[string]interface{}{
		"document": `query { __schema { types { name } } }`,
	}))
	if err != nil {
		t.Fatalf("handleGraphQLValidate: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for introspection")
	}
}

func TestWhitelistResources(t *testing.T) {
	s, _ := newTestMCPServer(t)
	ctx := context.Background()

	contents, err := s.handleJQLWhitelistResource(ctx, mcplib.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleJQLWhitelistResource: %v", err)
	}
	text := contents[0].(mcplib.TextResourceContents).Text
	if !strings.Contains(text, `"testplan"`) {
		t.Errorf("jql whitelist missing testplan: %s", text)
	}
	if !strings.Contains(text, `"opensprints"`) {
		t.Errorf("jql whitelist missing opensprints: %s", text)
	}

	contents, err = s.handleGraphQLWhitelistResource(ctx, mcplib.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleGraphQLWhitelistResource: %v", err)
	}
	text = contents[0].(mcplib.TextResourceContents).Text
	if !strings.Contains(text, `"getTests"`) {
		t.Errorf("graphql whitelist missing getTests: %s", text)
	}
	if !strings.Contains(text, `"updateTestRunStatus"`) {
		t.Errorf("graphql whitelist missing updateTestRunStatus: %s", text)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		val      int
		min      int
		max      int
		expected int
	}{
		{"value in range", 5, 1, 10, 5},
		{"value below min", -3, 1, 10, 1},
		{"value above max", 15, 1, 10, 10},
		{"value equals min", 1, 1, 10, 1},
		{"value equals max", 10, 1, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clamp(tt.val, tt.min, tt.max)
			if got != tt.expected {
				t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}
