package config

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConnectionCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conn := &model.Connection{
		Name:     "prod",
		Label:    "Production Jira",
		JiraURL:  "https://example.atlassian.net",
		XrayURL:  "https://xray.cloud.getxray.app/api/v2/graphql",
		Email:    "bot@example.com",
		APIToken: "token-123",
		ReadOnly: true,
		IsActive: true,
	}
	if err := store.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	if conn.ID == 0 {
		t.Error("CreateConnection did not populate ID")
	}

	got, err := store.GetConnectionByName(ctx, "prod")
	if err != nil {
		t.Fatalf("GetConnectionByName: %v", err)
	}
	if got.JiraURL != conn.JiraURL || got.APIToken != "token-123" {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	got.Label = "Primary"
	got.ReadOnly = false
	if err := store.UpdateConnection(ctx, got); err != nil {
		t.Fatalf("UpdateConnection: %v", err)
	}
	again, err := store.GetConnectionByName(ctx, "prod")
	if err != nil {
		t.Fatalf("GetConnectionByName after update: %v", err)
	}
	if again.Label != "Primary" || again.ReadOnly {
		t.Errorf("update not persisted: %+v", again)
	}

	conns, err := store.ListConnections(ctx)
	if err != nil {
		t.Fatalf("ListConnections: %v", err)
	}
	if len(conns) != 1 {
		t.Errorf("ListConnections returned %d, want 1", len(conns))
	}

	if err := store.DeleteConnection(ctx, "prod"); err != nil {
		t.Fatalf("DeleteConnection: %v", err)
	}
	if _, err := store.GetConnectionByName(ctx, "prod"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteConnection(ctx, "prod"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().Add(24 * time.Hour).UTC()
	key := &model.APIKey{
		KeyHash:   "abc123hash",
		KeyPrefix: "xm_12345",
		Label:     "ci",
		ReadOnly:  true,
		IsActive:  true,
		ExpiresAt: &expires,
	}
	if err := store.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	got, err := store.GetAPIKeyByHash(ctx, "abc123hash")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if got.Label != "ci" || !got.ReadOnly {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	if err := store.UpdateAPIKeyLastUsed(ctx, got.ID); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed: %v", err)
	}

	if err := store.RevokeAPIKey(ctx, got.ID); err != nil {
		t.Fatalf("RevokeAPIKey: %v", err)
	}
	revoked, err := store.GetAPIKeyByHash(ctx, "abc123hash")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash after revoke: %v", err)
	}
	if revoked.IsActive {
		t.Error("key still active after revoke")
	}
	if revoked.LastUsed == nil {
		t.Error("last_used not persisted")
	}

	if _, err := store.GetAPIKeyByHash(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown hash, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetSetting(ctx, "instance.id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unset key, got %v", err)
	}

	if err := store.SetSetting(ctx, "instance.id", "abc"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := store.SetSetting(ctx, "instance.id", "def"); err != nil {
		t.Fatalf("SetSetting upsert: %v", err)
	}

	val, err := store.GetSetting(ctx, "instance.id")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if val != "def" {
		t.Errorf("GetSetting = %q, want %q", val, "def")
	}
}

func TestAuditLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := []*model.AuditRecord{
		{Language: "jql", Connection: "prod", Query: `project = "X"`, Verdict: model.VerdictAccepted, Source: "mcp"},
		{Language: "jql", Connection: "prod", Query: `x; DROP TABLE y`, Verdict: model.VerdictRejected, Reason: "dangerous_pattern", Source: "http"},
		{Language: "graphql", Connection: "prod", Query: `{ getTests { total } }`, Verdict: model.VerdictAccepted, Source: "mcp"},
	}
	for _, rec := range records {
		if err := store.RecordAudit(ctx, rec); err != nil {
			t.Fatalf("RecordAudit: %v", err)
		}
	}

	all, err := store.ListAudit(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAudit returned %d records, want 3", len(all))
	}
	// Newest first.
	if all[0].Language != "graphql" {
		t.Errorf("expected newest record first, got %+v", all[0])
	}

	rejected, err := store.ListAudit(ctx, model.VerdictRejected, 10)
	if err != nil {
		t.Fatalf("ListAudit rejected: %v", err)
	}
	if len(rejected) != 1 || rejected[0].Reason != "dangerous_pattern" {
		t.Errorf("rejected filter mismatch: %+v", rejected)
	}

	accepted, rejectedCount, err := store.CountAudit(ctx)
	if err != nil {
		t.Fatalf("CountAudit: %v", err)
	}
	if accepted != 2 || rejectedCount != 1 {
		t.Errorf("CountAudit = (%d, %d), want (2, 1)", accepted, rejectedCount)
	}
}

func TestAuditTruncatesOversizedQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &model.AuditRecord{
		Language: "graphql",
		Query:    strings.Repeat("a", 5000),
		Verdict:  model.VerdictRejected,
		Reason:   "too_long",
	}
	if err := store.RecordAudit(ctx, rec); err != nil {
		t.Fatalf("RecordAudit: %v", err)
	}

	got, err := store.ListAudit(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(got) != 1 || len(got[0].Query) != 2000 {
		t.Errorf("stored query length = %d, want 2000", len(got[0].Query))
	}
}
