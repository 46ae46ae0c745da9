package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/cache"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/config"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/guard"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
)

func newTestGateway(t *testing.T) (*Gateway, *config.Store) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	gw := NewGateway(store, cache.New(time.Minute, 16), nil, 5*time.Second)
	return gw, store
}

func addConnection(t *testing.T, store *config.Store, conn *model.Connection) {
	t.Helper()
	if conn.Name == "" {
		conn.Name = "default"
	}
	conn.IsActive = true
	if err := store.CreateConnection(context.Background(), conn); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
}

func TestGatewayValidateJQLAudits(t *testing.T) {
	gw, store := newTestGateway(t)
	ctx := context.Background()

	sanitized, err := gw.ValidateJQL(ctx, `  project = PROJ  `, "test")
	if err != nil {
		t.Fatalf("ValidateJQL: %v", err)
	}
	if sanitized != `project = PROJ` {
		t.Errorf("sanitized = %q", sanitized)
	}

	if _, err := gw.ValidateJQL(ctx, `project = X; DROP TABLE users`, "test"); err == nil {
		t.Fatal("expected rejection")
	}

	accepted, rejected, err := store.CountAudit(ctx)
	if err != nil {
		t.Fatalf("CountAudit: %v", err)
	}
	if accepted != 1 || rejected != 1 {
		t.Errorf("audit counts = %d accepted, %d rejected; want 1/1", accepted, rejected)
	}
}

func TestGatewaySearchJQLCaches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"total":0,"issues":[]}`))
	}))
	defer srv.Close()

	gw, store := newTestGateway(t)
	addConnection(t, store, &model.Connection{JiraURL: srv.URL, Email: "e@x.com", APIToken: "tok"})
	ctx := context.Background()

	result, cached, err := gw.SearchJQL(ctx, "", `project = PROJ`, 10, 0, nil, "test")
	if err != nil {
		t.Fatalf("SearchJQL: %v", err)
	}
	if cached {
		t.Error("first call should not be cached")
	}
	if !strings.Contains(string(result), `"issues"`) {
		t.Errorf("result = %s", result)
	}

	_, cached, err = gw.SearchJQL(ctx, "", `project = PROJ`, 10, 0, nil, "test")
	if err != nil {
		t.Fatalf("SearchJQL (repeat): %v", err)
	}
	if !cached {
		t.Error("repeat call should hit the cache")
	}
	if calls != 1 {
		t.Errorf("remote calls = %d, want 1", calls)
	}
}

func TestGatewaySearchJQLRejectsBeforeNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote API must not be reached for a rejected query")
	}))
	defer srv.Close()

	gw, store := newTestGateway(t)
	addConnection(t, store, &model.Connection{JiraURL: srv.URL})

	_, _, err := gw.SearchJQL(context.Background(), "", `secretfield = "x"`, 10, 0, nil, "test")
	if !guard.IsKind(err, guard.KindUnknownField) {
		t.Errorf("err = %v, want UnknownField", err)
	}
}

func TestGatewayExecuteGraphQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/authenticate":
			w.Write([]byte(`"tok"`))
		case "/api/v2/graphql":
			w.Write([]byte(`{"data":{"getTests":{"total":2}}}`))
		}
	}))
	defer srv.Close()

	gw, store := newTestGateway(t)
	addConnection(t, store, &model.Connection{XrayURL: srv.URL, ClientID: "c", ClientSecret: "s"})

	result, _, err := gw.ExecuteGraphQL(context.Background(), "", `query { getTests(limit: 10) { total } }`, nil, "test")
	if err != nil {
		t.Fatalf("ExecuteGraphQL: %v", err)
	}
	if !strings.Contains(string(result), `"total":2`) {
		t.Errorf("result = %s", result)
	}
}

func TestGatewayExecuteOperationReadOnly(t *testing.T) {
	gw, store := newTestGateway(t)
	addConnection(t, store, &model.Connection{ReadOnly: true})

	doc := `mutation { updateTestRunStatus(id: "run-1", statusName: "PASSED") }`
	_, err := gw.ExecuteOperation(context.Background(), "", doc, "updateTestRunStatus", nil, "test")
	if err == nil {
		t.Fatal("expected read-only refusal")
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("err = %v, want read-only refusal", err)
	}
}

func TestGatewayNoConnection(t *testing.T) {
	gw, _ := newTestGateway(t)

	_, _, err := gw.SearchJQL(context.Background(), "", `project = PROJ`, 10, 0, nil, "test")
	if err != ErrNoConnection {
		t.Errorf("err = %v, want ErrNoConnection", err)
	}
}

func TestGatewayUnknownConnection(t *testing.T) {
	gw, _ := newTestGateway(t)

	_, _, err := gw.SearchJQL(context.Background(), "nope", `project = PROJ`, 10, 0, nil, "test")
	if err == nil || !strings.Contains(err.Error(), `"nope"`) {
		t.Errorf("err = %v, want unknown connection error", err)
	}
}
