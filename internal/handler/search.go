package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/client"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/config"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/guard"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

// requestSource tags audit records produced by the REST surface.
const requestSource = "http"

// SearchHandler serves the JQL endpoints: validate-only, forwarded search,
// and string escaping.
type SearchHandler struct {
	gateway *service.Gateway
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(gateway *service.Gateway) *SearchHandler {
	return &SearchHandler{gateway: gateway}
}

type jqlValidateRequest struct {
	Query string `json:"query"`
}

// Validate runs a JQL query through the guard without forwarding it.
// POST /api/v1/jql/validate
func (h *SearchHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req jqlValidateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sanitized, err := h.gateway.ValidateJQL(r.Context(), req.Query, requestSource)
	if err != nil {
		writeRejection(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ValidationResponse{
		Valid: true,
		Query: sanitized,
	})
}

type jqlSearchRequest struct {
	Query      string   `json:"query"`
	Connection string   `json:"connection,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	StartAt    int      `json:"start_at,omitempty"`
	Fields     []string `json:"fields,omitempty"`
}

// Search validates a JQL query and forwards it to the connection's Jira
// REST API.
// POST /api/v1/jql/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req jqlSearchRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	maxResults := clampInt(req.MaxResults, 0, 100)
	if maxResults == 0 {
		maxResults = 50
	}

	start := time.Now()
	result, cached, err := h.gateway.SearchJQL(r.Context(), req.Connection, req.Query, maxResults, req.StartAt, req.Fields, requestSource)
	if err != nil {
		writeForwardError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SearchResponse{
		Query:  req.Query,
		Result: result,
		Meta: &model.ResponseMeta{
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
			Cached: cached,
		},
	})
}

type jqlEscapeRequest struct {
	Value string `json:"value"`
}

// Escape returns the input escaped for embedding inside a quoted JQL
// string value.
// POST /api/v1/jql/escape
func (h *SearchHandler) Escape(w http.ResponseWriter, r *http.Request) {
	var req jqlEscapeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"escaped": h.gateway.EscapeJQLString(req.Value),
	})
}

// writeForwardError maps errors from a forwarded call onto HTTP statuses:
// guard rejections are 422 verdicts, missing connections 404/503, remote
// API failures 502, everything else 500.
func writeForwardError(w http.ResponseWriter, err error) {
	if guard.KindOf(err) != "" {
		writeRejection(w, err)
		return
	}
	var apiErr *client.APIError
	switch {
	case errors.Is(err, service.ErrNoConnection):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, config.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
