package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
)

// XrayClient executes GraphQL documents against the Xray Cloud API. The
// API uses a two-step flow: exchange client credentials for a bearer token
// at /api/v2/authenticate, then POST GraphQL to /api/v2/graphql.
type XrayClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Xray tokens are valid for 24h; refresh well before that.
const tokenLifetime = 23 * time.Hour

// NewXrayClient builds a client for the given connection.
func NewXrayClient(conn *model.Connection, timeout time.Duration) *XrayClient {
	return &XrayClient{
		baseURL:      strings.TrimRight(conn.XrayURL, "/"),
		clientID:     conn.ClientID,
		clientSecret: conn.ClientSecret,
		http:         newHTTPClient(timeout),
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Execute posts a GraphQL document with its variables and returns the raw
// JSON payload. The document must already be validated.
func (c *XrayClient) Execute(ctx context.Context, document string, variables map[string]interface{}) (json.RawMessage, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(graphqlRequest{Query: document, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/graphql", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xray graphql: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, body); err != nil {
		return nil, fmt.Errorf("xray graphql: %w", err)
	}
	return json.RawMessage(body), nil
}

// authenticate returns a cached bearer token, fetching a fresh one when
// the cache is empty or near expiry.
func (c *XrayClient) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/authenticate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("xray authenticate: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return "", err
	}
	if err := checkStatus(resp, body); err != nil {
		return "", fmt.Errorf("xray authenticate: %w", err)
	}

	// The endpoint returns the token as a bare JSON string.
	var token string
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("decode auth token: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("xray authenticate: empty token")
	}

	c.token = token
	c.tokenExpiry = time.Now().Add(tokenLifetime)
	return token, nil
}
