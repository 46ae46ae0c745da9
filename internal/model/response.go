package model

import "encoding/json"

// ValidationResponse reports a guard verdict for a validate-only call. On
// acceptance Query carries the sanitized (trimmed) text; on rejection Kind
// and Reason describe the violation.
type ValidationResponse struct {
	Valid  bool   `json:"valid"`
	Query  string `json:"query,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SearchResponse is the envelope for a forwarded JQL search: the sanitized
// query that was sent plus the remote payload, passed through untouched.
type SearchResponse struct {
	Query  string          `json:"query"`
	Result json.RawMessage `json:"result"`
	Meta   *ResponseMeta   `json:"meta,omitempty"`
}

// GraphQLResponse is the envelope for a forwarded GraphQL request.
type GraphQLResponse struct {
	Document string          `json:"document"`
	Result   json.RawMessage `json:"result"`
	Meta     *ResponseMeta   `json:"meta,omitempty"`
}

// ResponseMeta contains timing and cache information for forwarded calls,
// and the item count for list endpoints.
type ResponseMeta struct {
	TookMs float64 `json:"took_ms,omitempty"`
	Cached bool    `json:"cached,omitempty"`
	Count  int     `json:"count,omitempty"`
}

// ListResponse is the standard envelope for list endpoints.
type ListResponse struct {
	Resource interface{}   `json:"resource"`
	Meta     *ResponseMeta `json:"meta,omitempty"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}
