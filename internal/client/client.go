// Package client holds the thin HTTP transports that forward validated
// queries to the remote Jira REST and Xray GraphQL APIs. Nothing here
// inspects query content: every string handed to these clients must already
// have passed the guard.
package client

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// APIError is returned when the remote API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.StatusCode, e.Body)
}

// newHTTPClient returns the shared client configuration for both
// transports.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// readBody drains and returns a bounded response body. Remote payloads are
// capped so a misbehaving API cannot exhaust memory.
func readBody(resp *http.Response) ([]byte, error) {
	const maxBody = 10 << 20 // 10MB
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// checkStatus converts a non-2xx response into an APIError carrying a
// truncated body excerpt.
func checkStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	excerpt := string(body)
	if len(excerpt) > 512 {
		excerpt = excerpt[:512]
	}
	return &APIError{StatusCode: resp.StatusCode, Body: excerpt}
}
