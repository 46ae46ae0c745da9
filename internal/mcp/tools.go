package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/guard"
)

// toolSource tags audit records produced by MCP tool calls.
const toolSource = "mcp"

// registerTools registers the gateway's MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- JQL tools -----

	srv.AddTool(
		mcp.NewTool("jql_validate",
			mcp.WithDescription(
				"Validate a JQL query against the gateway's whitelist without running it. "+
					"Returns the sanitized query on acceptance, or the rejection kind and reason. "+
					"Use this to check a query before jql_search, or to understand why a query "+
					"was refused.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The JQL query to validate (max 1000 characters)"),
			),
		),
		s.handleJQLValidate,
	)

	srv.AddTool(
		mcp.NewTool("jql_search",
			mcp.WithDescription(
				"Search Jira issues with a JQL query. The query is validated against the "+
					"field and function whitelists first; only accepted queries reach Jira. "+
					"Returns the raw Jira search payload as JSON.\n\n"+
					"Example queries:\n"+
					"  - project = PROJ AND status = \"In Progress\"\n"+
					"  - assignee = currentUser() ORDER BY updated DESC\n"+
					"  - testType = Manual AND testPlan = PROJ-100\n"+
					"  - cf[10042] = \"some value\"",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("The JQL query to run"),
			),
			mcp.WithString("connection",
				mcp.Description("Named connection to use. Omit for the default connection."),
			),
			mcp.WithNumber("max_results",
				mcp.Description("Maximum number of issues to return (default 50, max 100)"),
			),
			mcp.WithNumber("start_at",
				mcp.Description("Index of the first issue to return, for pagination"),
			),
			mcp.WithArray("fields",
				mcp.Description("Issue fields to include in the response. Omit for defaults."),
				mcp.WithStringItems(),
			),
		),
		s.handleJQLSearch,
	)

	srv.AddTool(
		mcp.NewTool("jql_escape",
			mcp.WithDescription(
				"Escape a raw string for safe embedding inside a quoted JQL value. "+
					"Backslashes and double quotes are escaped; control characters are removed. "+
					"Use this when building a JQL query from untrusted text.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("value",
				mcp.Required(),
				mcp.Description("The raw string to escape"),
			),
		),
		s.handleJQLEscape,
	)

	// ----- GraphQL tools -----

	srv.AddTool(
		mcp.NewTool("graphql_validate",
			mcp.WithDescription(
				"Validate an Xray GraphQL document and its variables against the gateway's "+
					"whitelist without running it. Returns the sanitized document on acceptance, "+
					"or the rejection kind and reason.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("document",
				mcp.Required(),
				mcp.Description("The GraphQL document to validate (max 5000 characters)"),
			),
			mcp.WithObject("variables",
				mcp.Description("GraphQL variables referenced by the document"),
			),
		),
		s.handleGraphQLValidate,
	)

	srv.AddTool(
		mcp.NewTool("graphql_query",
			mcp.WithDescription(
				"Execute an Xray GraphQL query document. The document and variables are "+
					"validated first; only accepted documents reach the Xray API. Returns the "+
					"raw GraphQL payload as JSON.\n\n"+
					"Example:\n"+
					"  query { getTests(jql: \"project = PROJ\", limit: 10) "+
					"{ total results { issueId testType { name } } } }",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("document",
				mcp.Required(),
				mcp.Description("The GraphQL document to execute"),
			),
			mcp.WithObject("variables",
				mcp.Description("GraphQL variables referenced by the document"),
			),
			mcp.WithString("connection",
				mcp.Description("Named connection to use. Omit for the default connection."),
			),
		),
		s.handleGraphQLQuery,
	)

	srv.AddTool(
		mcp.NewTool("graphql_operation",
			mcp.WithDescription(
				"Execute a named Xray GraphQL operation, including mutations such as "+
					"updateTestRunStatus or addEvidenceToTestRun. The operation name must be "+
					"whitelisted and must appear in the document; mutations are refused on "+
					"read-only connections. Use the whitelist resources to discover allowed "+
					"operation names.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("document",
				mcp.Required(),
				mcp.Description("The GraphQL document to execute"),
			),
			mcp.WithString("operation",
				mcp.Required(),
				mcp.Description("The whitelisted operation name the document invokes"),
			),
			mcp.WithObject("variables",
				mcp.Description("GraphQL variables referenced by the document"),
			),
			mcp.WithString("connection",
				mcp.Description("Named connection to use. Omit for the default connection."),
			),
		),
		s.handleGraphQLOperation,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

// handleJQLValidate runs the JQL guard without forwarding.
func (s *MCPServer) handleJQLValidate(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	query, err := requireString(request, "query")
	if err != nil {
		return toolError("%v", err)
	}

	sanitized, err := s.gateway.ValidateJQL(ctx, query, toolSource)
	if err != nil {
		return rejectionResult(err)
	}

	return successJSON(map[string]interface{}{
		"valid": true,
		"query": sanitized,
	})
}

// handleJQLSearch validates and forwards a JQL search.
func (s *MCPServer) handleJQLSearch(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	query, err := requireString(request, "query")
	if err != nil {
		return toolError("%v", err)
	}
	connection := optionalString(request, "connection")
	maxResults := clamp(optionalInt(request, "max_results", 50), 1, 100)
	startAt := optionalInt(request, "start_at", 0)
	if startAt < 0 {
		startAt = 0
	}
	fields := optionalStringSlice(request, "fields")

	result, cached, err := s.gateway.SearchJQL(ctx, connection, query, maxResults, startAt, fields, toolSource)
	if err != nil {
		if guard.KindOf(err) != "" {
			return rejectionResult(err)
		}
		return toolError("Search failed: %v", err)
	}

	return successJSON(map[string]interface{}{
		"query":  query,
		"cached": cached,
		"result": result,
	})
}

// handleJQLEscape escapes a string for a quoted JQL value.
func (s *MCPServer) handleJQLEscape(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	value, err := requireString(request, "value")
	if err != nil {
		return toolError("%v", err)
	}

	return successJSON(map[string]string{
		"escaped": s.gateway.EscapeJQLString(value),
	})
}

// handleGraphQLValidate runs the GraphQL guard without forwarding.
func (s *MCPServer) handleGraphQLValidate(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	document, err := requireString(request, "document")
	if err != nil {
		return toolError("%v", err)
	}
	variables := getObjectArg(request, "variables")

	sanitized, err := s.gateway.ValidateGraphQL(ctx, document, variables, toolSource)
	if err != nil {
		return rejectionResult(err)
	}

	return successJSON(map[string]interface{}{
		"valid":    true,
		"document": sanitized,
	})
}

// handleGraphQLQuery validates and forwards a GraphQL document.
func (s *MCPServer) handleGraphQLQuery(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	document, err := requireString(request, "document")
	if err != nil {
		return toolError("%v", err)
	}
	variables := getObjectArg(request, "variables")
	connection := optionalString(request, "connection")

	result, cached, err := s.gateway.ExecuteGraphQL(ctx, connection, document, variables, toolSource)
	if err != nil {
		if guard.KindOf(err) != "" {
			return rejectionResult(err)
		}
		return toolError("Query failed: %v", err)
	}

	return successJSON(map[string]interface{}{
		"cached": cached,
		"result": result,
	})
}

// handleGraphQLOperation validates against a named operation and forwards.
func (s *MCPServer) handleGraphQLOperation(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	document, err := requireString(request, "document")
	if err != nil {
		return toolError("%v", err)
	}
	operation, err := requireString(request, "operation")
	if err != nil {
		return toolError("%v. Allowed operations: see the whitelist resources", err)
	}
	variables := getObjectArg(request, "variables")
	connection := optionalString(request, "connection")

	result, err := s.gateway.ExecuteOperation(ctx, connection, document, operation, variables, toolSource)
	if err != nil {
		if guard.KindOf(err) != "" {
			return rejectionResult(err)
		}
		return toolError("Operation failed: %v", err)
	}

	return successJSON(map[string]interface{}{
		"operation": operation,
		"result":    result,
	})
}
