package handler

import (
	"net/http"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/openapi"
)

// OpenAPIHandler serves the gateway's OpenAPI document. The surface is
// fixed, so the document is generated once and reused.
type OpenAPIHandler struct {
	specJSON []byte
}

// NewOpenAPIHandler creates an OpenAPIHandler with the spec pre-rendered.
func NewOpenAPIHandler(baseURL, version string) (*OpenAPIHandler, error) {
	doc := openapi.GenerateSpec(baseURL, version)
	b, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return &OpenAPIHandler{specJSON: b}, nil
}

// ServeSpec writes the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.specJSON)
}
