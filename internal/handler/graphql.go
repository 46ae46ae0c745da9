package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

// GraphQLHandler serves the GraphQL endpoints: validate-only, forwarded
// document execution, and named-operation execution.
type GraphQLHandler struct {
	gateway *service.Gateway
}

// NewGraphQLHandler creates a new GraphQLHandler.
func NewGraphQLHandler(gateway *service.Gateway) *GraphQLHandler {
	return &GraphQLHandler{gateway: gateway}
}

type graphqlValidateRequest struct {
	Document  string                 `json:"document"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Validate runs a GraphQL document and its variables through the guard
// without forwarding.
// POST /api/v1/graphql/validate
func (h *GraphQLHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req graphqlValidateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sanitized, err := h.gateway.ValidateGraphQL(r.Context(), req.Document, req.Variables, requestSource)
	if err != nil {
		writeRejection(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ValidationResponse{
		Valid: true,
		Query: sanitized,
	})
}

type graphqlQueryRequest struct {
	Document   string                 `json:"document"`
	Variables  map[string]interface{} `json:"variables,omitempty"`
	Connection string                 `json:"connection,omitempty"`
}

// Query validates a GraphQL document and forwards it to the connection's
// Xray API.
// POST /api/v1/graphql/query
func (h *GraphQLHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req graphqlQueryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	result, cached, err := h.gateway.ExecuteGraphQL(r.Context(), req.Connection, req.Document, req.Variables, requestSource)
	if err != nil {
		writeForwardError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GraphQLResponse{
		Document: req.Document,
		Result:   result,
		Meta: &model.ResponseMeta{
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
			Cached: cached,
		},
	})
}

type graphqlOperationRequest struct {
	Document   string                 `json:"document"`
	Operation  string                 `json:"operation"`
	Variables  map[string]interface{} `json:"variables,omitempty"`
	Connection string                 `json:"connection,omitempty"`
}

// Operation validates a GraphQL document against a named whitelisted
// operation and forwards it. This is the endpoint mutations go through; it
// sits behind the writable-key check.
// POST /api/v1/graphql/operation
func (h *GraphQLHandler) Operation(w http.ResponseWriter, r *http.Request) {
	var req graphqlOperationRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Operation == "" {
		writeError(w, http.StatusBadRequest, "operation is required")
		return
	}

	result, err := h.gateway.ExecuteOperation(r.Context(), req.Connection, req.Document, req.Operation, req.Variables, requestSource)
	if err != nil {
		if errors.Is(err, service.ErrReadOnlyConnection) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeForwardError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GraphQLResponse{
		Document: req.Document,
		Result:   result,
	})
}
