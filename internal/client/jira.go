package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
)

// JiraClient executes JQL searches against the Jira Cloud REST API using
// basic auth with an account email and API token.
type JiraClient struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
}

// NewJiraClient builds a client for the given connection. Credentials are
// taken from the connection record; the base URL is normalized without a
// trailing slash.
func NewJiraClient(conn *model.Connection, timeout time.Duration) *JiraClient {
	return &JiraClient{
		baseURL: strings.TrimRight(conn.JiraURL, "/"),
		email:   conn.Email,
		token:   conn.APIToken,
		http:    newHTTPClient(timeout),
	}
}

type jiraSearchRequest struct {
	JQL        string   `json:"jql"`
	MaxResults int      `json:"maxResults"`
	StartAt    int      `json:"startAt"`
	Fields     []string `json:"fields,omitempty"`
}

// Search runs a JQL query through POST /rest/api/3/search and returns the
// raw JSON payload. The query must already be validated; this client only
// moves bytes.
func (c *JiraClient) Search(ctx context.Context, jql string, maxResults, startAt int, fields []string) (json.RawMessage, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	payload, err := json.Marshal(jiraSearchRequest{
		JQL:        jql,
		MaxResults: maxResults,
		StartAt:    startAt,
		Fields:     fields,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/3/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira search: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, body); err != nil {
		return nil, fmt.Errorf("jira search: %w", err)
	}
	return json.RawMessage(body), nil
}

// Myself calls GET /rest/api/3/myself as a cheap credential check.
func (c *JiraClient) Myself(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/api/3/myself", nil)
	if err != nil {
		return fmt.Errorf("build myself request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jira myself: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, body); err != nil {
		return fmt.Errorf("jira myself: %w", err)
	}
	return nil
}
