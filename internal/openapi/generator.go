// Package openapi generates the OpenAPI 3.1 document for the gateway's
// HTTP surface. Unlike a schema-introspecting API the surface here is
// fixed, so the generator enumerates the known routes directly.
package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// GenerateSpec builds the gateway's OpenAPI document.
func GenerateSpec(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Xray MCP Gateway API",
			Description: "Validating gateway for Jira JQL search and Xray GraphQL queries. Every query is checked against structural limits and field/operation whitelists before it is forwarded.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Key",
		},
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"apiKey": {}},
		{"bearerAuth": {}},
	}

	addSharedSchemas(doc)

	doc.Paths = openapi3.NewPaths()
	addJQLPaths(doc)
	addGraphQLPaths(doc)
	addSystemPaths(doc)

	return doc
}

func addSharedSchemas(doc *openapi3.T) {
	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}

	doc.Components.Schemas["ValidationResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"valid":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"query":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"kind":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"reason": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		},
	}

	doc.Components.Schemas["Meta"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"took_ms": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}},
				"cached":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"count":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
			},
		},
	}
}

func addJQLPaths(doc *openapi3.T) {
	validationRef := openapi3.NewSchemaRef("#/components/schemas/ValidationResponse", nil)

	doc.Paths.Set("/api/v1/jql/validate", &openapi3.PathItem{
		Post: postOperation("jql", "Validate a JQL query",
			"Run the query through the JQL guard without forwarding it. Returns the sanitized query on acceptance or the rejection kind and reason.",
			"jql_validate",
			objectSchema(map[string]*openapi3.Schema{
				"query": {Type: &openapi3.Types{"string"}},
			}, "query"),
			validationRef),
	})

	doc.Paths.Set("/api/v1/jql/search", &openapi3.PathItem{
		Post: postOperation("jql", "Search issues with JQL",
			"Validate the query and forward it to the connection's Jira REST search API. The remote payload is passed through unmodified.",
			"jql_search",
			objectSchema(map[string]*openapi3.Schema{
				"query":       {Type: &openapi3.Types{"string"}},
				"connection":  {Type: &openapi3.Types{"string"}},
				"max_results": {Type: &openapi3.Types{"integer"}, Format: "int32"},
				"start_at":    {Type: &openapi3.Types{"integer"}, Format: "int32"},
				"fields":      {Type: &openapi3.Types{"array"}, Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}},
			}, "query"),
			objectSchemaRef(map[string]*openapi3.SchemaRef{
				"query":  {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"result": {Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
				"meta":   openapi3.NewSchemaRef("#/components/schemas/Meta", nil),
			})),
	})

	doc.Paths.Set("/api/v1/jql/escape", &openapi3.PathItem{
		Post: postOperation("jql", "Escape a JQL string value",
			"Escape a raw string for safe embedding inside a quoted JQL value.",
			"jql_escape",
			objectSchema(map[string]*openapi3.Schema{
				"value": {Type: &openapi3.Types{"string"}},
			}, "value"),
			objectSchemaRef(map[string]*openapi3.SchemaRef{
				"escaped": {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			})),
	})
}

func addGraphQLPaths(doc *openapi3.T) {
	validationRef := openapi3.NewSchemaRef("#/components/schemas/ValidationResponse", nil)
	resultSchema := objectSchemaRef(map[string]*openapi3.SchemaRef{
		"document": {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
		"result":   {Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
		"meta":     openapi3.NewSchemaRef("#/components/schemas/Meta", nil),
	})

	doc.Paths.Set("/api/v1/graphql/validate", &openapi3.PathItem{
		Post: postOperation("graphql", "Validate a GraphQL document",
			"Run the document and its variables through the GraphQL guard without forwarding.",
			"graphql_validate",
			objectSchema(map[string]*openapi3.Schema{
				"document":  {Type: &openapi3.Types{"string"}},
				"variables": {Type: &openapi3.Types{"object"}},
			}, "document"),
			validationRef),
	})

	doc.Paths.Set("/api/v1/graphql/query", &openapi3.PathItem{
		Post: postOperation("graphql", "Execute a GraphQL document",
			"Validate the document and forward it to the connection's Xray GraphQL API.",
			"graphql_query",
			objectSchema(map[string]*openapi3.Schema{
				"document":   {Type: &openapi3.Types{"string"}},
				"variables":  {Type: &openapi3.Types{"object"}},
				"connection": {Type: &openapi3.Types{"string"}},
			}, "document"),
			resultSchema),
	})

	doc.Paths.Set("/api/v1/graphql/operation", &openapi3.PathItem{
		Post: postOperation("graphql", "Execute a named GraphQL operation",
			"Validate the document against a named whitelisted operation and forward it. Mutations require a writable API key and a writable connection.",
			"graphql_operation",
			objectSchema(map[string]*openapi3.Schema{
				"document":   {Type: &openapi3.Types{"string"}},
				"operation":  {Type: &openapi3.Types{"string"}},
				"variables":  {Type: &openapi3.Types{"object"}},
				"connection": {Type: &openapi3.Types{"string"}},
			}, "document", "operation"),
			resultSchema),
	})
}

func addSystemPaths(doc *openapi3.T) {
	listSchema := objectSchemaRef(map[string]*openapi3.SchemaRef{
		"resource": {Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}}},
		"meta":     openapi3.NewSchemaRef("#/components/schemas/Meta", nil),
	})

	doc.Paths.Set("/api/v1/system/connection", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "List remote connections",
			OperationID: "system_list_connections",
			Responses:   newResponses("200", "Configured connections", listSchema),
		},
		Post: postOperation("system", "Create a remote connection",
			"Register a Jira/Xray site with its credentials.",
			"system_create_connection",
			objectSchema(map[string]*openapi3.Schema{
				"name":      {Type: &openapi3.Types{"string"}},
				"label":     {Type: &openapi3.Types{"string"}},
				"jira_url":  {Type: &openapi3.Types{"string"}},
				"xray_url":  {Type: &openapi3.Types{"string"}},
				"email":     {Type: &openapi3.Types{"string"}},
				"api_token": {Type: &openapi3.Types{"string"}},
				"client_id": {Type: &openapi3.Types{"string"}},
				"read_only": {Type: &openapi3.Types{"boolean"}},
			}, "name"),
			&openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}),
	})

	doc.Paths.Set("/api/v1/system/api-key", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "List API keys",
			OperationID: "system_list_api_keys",
			Responses:   newResponses("200", "Configured API keys", listSchema),
		},
		Post: postOperation("system", "Create an API key",
			"Generate a new API key. The plaintext key is returned once.",
			"system_create_api_key",
			objectSchema(map[string]*openapi3.Schema{
				"label":     {Type: &openapi3.Types{"string"}},
				"read_only": {Type: &openapi3.Types{"boolean"}},
			}),
			&openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}),
	})

	doc.Paths.Set("/api/v1/system/audit", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "List audit records",
			Description: "Recent query verdicts, newest first. Filter with ?verdict=accepted|rejected.",
			OperationID: "system_list_audit",
			Parameters: openapi3.Parameters{
				&openapi3.ParameterRef{
					Value: openapi3.NewQueryParameter("verdict").
						WithDescription("Filter by verdict: accepted or rejected.").
						WithSchema(openapi3.NewStringSchema()),
				},
				&openapi3.ParameterRef{
					Value: openapi3.NewQueryParameter("limit").
						WithDescription("Maximum number of records to return.").
						WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
				},
			},
			Responses: newResponses("200", "Audit records", listSchema),
		},
	})

	doc.Paths.Set("/api/v1/system/status", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Gateway status",
			OperationID: "system_status",
			Responses: newResponses("200", "Uptime, version, and verdict totals",
				&openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}),
		},
	})
}

// ─── Builders ───────────────────────────────────────────────────────────────

// postOperation builds a POST operation with a JSON request body and the
// standard error responses.
func postOperation(tag, summary, description, operationID string, reqSchema, respSchema *openapi3.SchemaRef) *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{tag},
		Summary:     summary,
		Description: description,
		OperationID: operationID,
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Description: fmt.Sprintf("Request body for %s", operationID),
				Required:    true,
				Content:     openapi3.NewContentWithJSONSchemaRef(reqSchema),
			},
		},
		Responses: newResponses("200", "Successful response", respSchema),
	}
}

// objectSchema builds an inline object schema ref from property schemas.
func objectSchema(props map[string]*openapi3.Schema, required ...string) *openapi3.SchemaRef {
	schemas := openapi3.Schemas{}
	for name, s := range props {
		schemas[name] = &openapi3.SchemaRef{Value: s}
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: schemas,
			Required:   required,
		},
	}
}

// objectSchemaRef is objectSchema for properties that are already refs.
func objectSchemaRef(props map[string]*openapi3.SchemaRef) *openapi3.SchemaRef {
	schemas := openapi3.Schemas{}
	for name, ref := range props {
		schemas[name] = ref
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: schemas,
		},
	}
}

// newResponses builds a Responses set with the success response plus the
// standard error envelope responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)

	badReqDesc := "Bad request"
	responses.Set("400", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &badReqDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	unauthDesc := "Unauthorized"
	responses.Set("401", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &unauthDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	rejectedDesc := "Query rejected by the guard"
	responses.Set("422", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &rejectedDesc,
			Content: openapi3.NewContentWithJSONSchemaRef(
				openapi3.NewSchemaRef("#/components/schemas/ValidationResponse", nil)),
		},
	})

	return responses
}
