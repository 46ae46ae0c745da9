package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/cache"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/client"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/config"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/guard"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
)

var (
	ErrNoConnection       = errors.New("no active connection configured")
	ErrReadOnlyConnection = errors.New("connection is read-only")
)

// Gateway validates queries and forwards the accepted ones to the remote
// Jira and Xray APIs. It is the single choke point shared by the HTTP
// handlers and the MCP tools: no query reaches a remote API without
// passing the validators first, and every verdict lands in the audit log.
type Gateway struct {
	store  *config.Store
	jql    *guard.JQLValidator
	gql    *guard.GraphQLValidator
	cache  *cache.Cache
	logger *slog.Logger

	timeout time.Duration

	mu   sync.Mutex
	jira map[string]*client.JiraClient
	xray map[string]*client.XrayClient
}

// NewGateway builds a Gateway. The cache may be nil to disable result
// caching.
func NewGateway(store *config.Store, resultCache *cache.Cache, logger *slog.Logger, timeout time.Duration) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		store:   store,
		jql:     guard.NewJQLValidator(),
		gql:     guard.NewGraphQLValidator(),
		cache:   resultCache,
		logger:  logger,
		timeout: timeout,
		jira:    make(map[string]*client.JiraClient),
		xray:    make(map[string]*client.XrayClient),
	}
}

// ValidateJQL runs the JQL pipeline and records the verdict. The returned
// string is the sanitized query to forward.
func (g *Gateway) ValidateJQL(ctx context.Context, jqlQuery, source string) (string, error) {
	sanitized, err := g.jql.ValidateJQL(jqlQuery)
	g.audit(ctx, "jql", "", jqlQuery, source, err)
	if err != nil {
		return "", err
	}
	return sanitized, nil
}

// ValidateGraphQL runs the GraphQL pipeline (document plus variables) and
// records the verdict.
func (g *Gateway) ValidateGraphQL(ctx context.Context, document string, variables map[string]interface{}, source string) (string, error) {
	sanitized, err := g.gql.ValidateQuery(document, variables)
	g.audit(ctx, "graphql", "", document, source, err)
	if err != nil {
		return "", err
	}
	return sanitized, nil
}

// EscapeJQLString escapes a raw string for safe embedding in a quoted JQL
// value.
func (g *Gateway) EscapeJQLString(s string) string {
	return guard.EscapeStringValue(s)
}

// SearchJQL validates the query and, on acceptance, runs it against the
// connection's Jira REST API. Results are cached when a cache is
// configured. The bool result reports a cache hit.
func (g *Gateway) SearchJQL(ctx context.Context, connName, jqlQuery string, maxResults, startAt int, fields []string, source string) (json.RawMessage, bool, error) {
	conn, err := g.resolveConnection(ctx, connName)
	if err != nil {
		return nil, false, err
	}

	sanitized, err := g.jql.ValidateJQL(jqlQuery)
	g.audit(ctx, "jql", conn.Name, jqlQuery, source, err)
	if err != nil {
		return nil, false, err
	}

	key := cache.Key(fmt.Sprintf("jql:%s:%d:%d:%v", conn.Name, maxResults, startAt, fields), map[string]interface{}{"q": sanitized})
	if hit := g.cache.Get(key); hit != nil {
		return json.RawMessage(hit), true, nil
	}

	result, err := g.jiraClient(conn).Search(ctx, sanitized, maxResults, startAt, fields)
	if err != nil {
		return nil, false, fmt.Errorf("jql search: %w", err)
	}
	g.cache.Set(key, result)
	return result, false, nil
}

// ExecuteGraphQL validates the document and variables and, on acceptance,
// posts them to the connection's Xray GraphQL API.
func (g *Gateway) ExecuteGraphQL(ctx context.Context, connName, document string, variables map[string]interface{}, source string) (json.RawMessage, bool, error) {
	conn, err := g.resolveConnection(ctx, connName)
	if err != nil {
		return nil, false, err
	}

	sanitized, err := g.gql.ValidateQuery(document, variables)
	g.audit(ctx, "graphql", conn.Name, document, source, err)
	if err != nil {
		return nil, false, err
	}

	key := cache.Key("graphql:"+conn.Name+":"+sanitized, variables)
	if hit := g.cache.Get(key); hit != nil {
		return json.RawMessage(hit), true, nil
	}

	result, err := g.xrayClient(conn).Execute(ctx, sanitized, variables)
	if err != nil {
		return nil, false, fmt.Errorf("graphql execute: %w", err)
	}
	g.cache.Set(key, result)
	return result, false, nil
}

// ExecuteOperation is ExecuteGraphQL with an additional named-operation
// check: the document must mention the expected operation and the detected
// operation type's whitelist must contain it. Mutations are refused on
// read-only connections.
func (g *Gateway) ExecuteOperation(ctx context.Context, connName, document, operation string, variables map[string]interface{}, source string) (json.RawMessage, error) {
	conn, err := g.resolveConnection(ctx, connName)
	if err != nil {
		return nil, err
	}

	sanitized, err := g.gql.ValidateForOperation(document, operation, variables)
	g.audit(ctx, "graphql", conn.Name, document, source, err)
	if err != nil {
		return nil, err
	}

	if conn.ReadOnly && guard.IsMutationOperation(operation) {
		return nil, fmt.Errorf("mutation %q on %q refused: %w", operation, conn.Name, ErrReadOnlyConnection)
	}

	result, err := g.xrayClient(conn).Execute(ctx, sanitized, variables)
	if err != nil {
		return nil, fmt.Errorf("graphql operation %s: %w", operation, err)
	}
	return result, nil
}

// resolveConnection returns the named connection, or the first active one
// when name is empty.
func (g *Gateway) resolveConnection(ctx context.Context, name string) (*model.Connection, error) {
	if name != "" {
		conn, err := g.store.GetConnectionByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("connection %q: %w", name, err)
		}
		if !conn.IsActive {
			return nil, fmt.Errorf("connection %q is disabled", name)
		}
		return conn, nil
	}

	conns, err := g.store.ListConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	for i := range conns {
		if conns[i].IsActive {
			return &conns[i], nil
		}
	}
	return nil, ErrNoConnection
}

func (g *Gateway) jiraClient(conn *model.Connection) *client.JiraClient {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.jira[conn.Name]; ok {
		return c
	}
	c := client.NewJiraClient(conn, g.timeout)
	g.jira[conn.Name] = c
	return c
}

func (g *Gateway) xrayClient(conn *model.Connection) *client.XrayClient {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.xray[conn.Name]; ok {
		return c
	}
	c := client.NewXrayClient(conn, g.timeout)
	g.xray[conn.Name] = c
	return c
}

// InvalidateClients drops cached per-connection clients, forcing fresh
// credentials on the next call. Called after a connection is updated.
func (g *Gateway) InvalidateClients(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.jira, name)
	delete(g.xray, name)
}

// audit records a verdict. Audit failures are logged, never surfaced: the
// caller's query result does not depend on the audit trail being writable.
func (g *Gateway) audit(ctx context.Context, language, connName, query, source string, verr error) {
	rec := &model.AuditRecord{
		Language:   language,
		Connection: connName,
		Query:      query,
		Verdict:    model.VerdictAccepted,
		Source:     source,
	}
	if verr != nil {
		rec.Verdict = model.VerdictRejected
		rec.Reason = verr.Error()
	}
	if err := g.store.RecordAudit(ctx, rec); err != nil {
		g.logger.Warn("audit write failed", "error", err)
	}
}
