package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/guard"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context: the
// query whitelists and the configured connections.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	srv.AddResource(
		mcp.NewResource(
			"xraymcp://whitelist/jql",
			"JQL Whitelist",
			mcp.WithResourceDescription(
				"The JQL fields and functions the gateway accepts. Queries using "+
					"anything outside these lists are rejected. Custom fields are "+
					"addressed as cf[N] with N between 10000 and 99999.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleJQLWhitelistResource,
	)

	srv.AddResource(
		mcp.NewResource(
			"xraymcp://whitelist/graphql",
			"GraphQL Operation Whitelist",
			mcp.WithResourceDescription(
				"The Xray GraphQL query and mutation operations the gateway accepts "+
					"through graphql_operation.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleGraphQLWhitelistResource,
	)

	srv.AddResource(
		mcp.NewResource(
			"xraymcp://connections",
			"Remote Connections",
			mcp.WithResourceDescription(
				"The Jira/Xray connections configured in the gateway, including "+
					"their active status and read-only flag. Credentials are not included.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleConnectionsResource,
	)
}

// handleJQLWhitelistResource returns the accepted JQL fields and functions.
func (s *MCPServer) handleJQLWhitelistResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	b, err := json.MarshalIndent(map[string]interface{}{
		"fields":           guard.JQLFields(),
		"functions":        guard.JQLFunctions(),
		"custom_field_min": 10000,
		"custom_field_max": 99999,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal whitelist: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "xraymcp://whitelist/jql",
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

// handleGraphQLWhitelistResource returns the accepted GraphQL operations.
func (s *MCPServer) handleGraphQLWhitelistResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	b, err := json.MarshalIndent(map[string]interface{}{
		"queries":   guard.GraphQLQueryOperations(),
		"mutations": guard.GraphQLMutationOperations(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal whitelist: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "xraymcp://whitelist/graphql",
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

// handleConnectionsResource returns the configured connections without
// credentials.
func (s *MCPServer) handleConnectionsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	conns, err := s.store.ListConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	type connInfo struct {
		Name     string `json:"name"`
		Label    string `json:"label,omitempty"`
		JiraURL  string `json:"jira_url"`
		XrayURL  string `json:"xray_url"`
		IsActive bool   `json:"is_active"`
		ReadOnly bool   `json:"read_only"`
	}

	items := make([]connInfo, len(conns))
	for i, c := range conns {
		items[i] = connInfo{
			Name:     c.Name,
			Label:    c.Label,
			JiraURL:  c.JiraURL,
			XrayURL:  c.XrayURL,
			IsActive: c.IsActive,
			ReadOnly: c.ReadOnly,
		}
	}

	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal connections: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "xraymcp://connections",
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
