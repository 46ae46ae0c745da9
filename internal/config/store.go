package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
)

// Store manages the gateway's internal state backed by SQLite. It persists
// remote connections, API keys, settings, and the query audit log.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new config store. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "xraymcp.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open config database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate config database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store's database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Connection CRUD
// ---------------------------------------------------------------------------

// CreateConnection inserts a new remote connection. The ID, CreatedAt, and
// UpdatedAt fields on conn are populated after a successful insert.
func (s *Store) CreateConnection(ctx context.Context, conn *model.Connection) error {
	now := time.Now().UTC()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	const q = `INSERT INTO connections
		(name, label, jira_url, xray_url, email, api_token, client_id, client_secret,
		 read_only, is_active, created_at, updated_at)
		VALUES
		(:name, :label, :jira_url, :xray_url, :email, :api_token, :client_id, :client_secret,
		 :read_only, :is_active, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, conn)
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get connection id: %w", err)
	}
	conn.ID = id
	return nil
}

// GetConnectionByName returns a connection by its unique name.
func (s *Store) GetConnectionByName(ctx context.Context, name string) (*model.Connection, error) {
	var conn model.Connection
	if err := s.db.GetContext(ctx, &conn, "SELECT * FROM connections WHERE name = ?", name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get connection by name: %w", err)
	}
	return &conn, nil
}

// ListConnections returns all configured connections.
func (s *Store) ListConnections(ctx context.Context) ([]model.Connection, error) {
	var conns []model.Connection
	if err := s.db.SelectContext(ctx, &conns, "SELECT * FROM connections ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return conns, nil
}

// UpdateConnection updates an existing connection. The UpdatedAt field is
// refreshed automatically.
func (s *Store) UpdateConnection(ctx context.Context, conn *model.Connection) error {
	conn.UpdatedAt = time.Now().UTC()

	const q = `UPDATE connections SET
		name = :name, label = :label, jira_url = :jira_url, xray_url = :xray_url,
		email = :email, api_token = :api_token, client_id = :client_id,
		client_secret = :client_secret, read_only = :read_only, is_active = :is_active,
		updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, conn)
	if err != nil {
		return fmt.Errorf("update connection: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update connection rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConnection removes a connection by name.
func (s *Store) DeleteConnection(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM connections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete connection rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// API key CRUD
// ---------------------------------------------------------------------------

// CreateAPIKey inserts a new API key record. The ID and CreatedAt fields
// are populated after a successful insert.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	key.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO api_keys
		(key_hash, key_prefix, label, read_only, is_active, expires_at, created_at)
		VALUES (:key_hash, :key_prefix, :label, :read_only, :is_active, :expires_at, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, key)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get api key id: %w", err)
	}
	key.ID = id
	return nil
}

// GetAPIKeyByHash returns an API key by its SHA-256 hash.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var key model.APIKey
	if err := s.db.GetContext(ctx, &key, "SELECT * FROM api_keys WHERE key_hash = ?", hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by hash: %w", err)
	}
	return &key, nil
}

// ListAPIKeys returns all API keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := s.db.SelectContext(ctx, &keys, "SELECT * FROM api_keys ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// RevokeAPIKey marks an API key inactive. Revocation is preferred over
// deletion so the audit trail keeps the key's identity.
func (s *Store) RevokeAPIKey(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "UPDATE api_keys SET is_active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAPIKeyLastUsed stamps the key's last-used time.
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET last_used = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSetting returns the value for a settings key, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting upserts a settings key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	const q = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Audit log
// ---------------------------------------------------------------------------

// RecordAudit appends one guard decision to the audit log. Oversized query
// text is truncated so a hostile caller cannot bloat the store through the
// log itself.
func (s *Store) RecordAudit(ctx context.Context, rec *model.AuditRecord) error {
	const maxAuditQuery = 2000
	if len(rec.Query) > maxAuditQuery {
		rec.Query = rec.Query[:maxAuditQuery]
	}
	rec.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO audit_log
		(language, connection, query, verdict, reason, source, created_at)
		VALUES (:language, :connection, :query, :verdict, :reason, :source, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, rec)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get audit record id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListAudit returns the most recent audit records, newest first. verdict
// filters to accepted/rejected when non-empty.
func (s *Store) ListAudit(ctx context.Context, verdict string, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var records []model.AuditRecord
	var err error
	if verdict == "" {
		err = s.db.SelectContext(ctx, &records,
			"SELECT * FROM audit_log ORDER BY id DESC LIMIT ?", limit)
	} else {
		err = s.db.SelectContext(ctx, &records,
			"SELECT * FROM audit_log WHERE verdict = ? ORDER BY id DESC LIMIT ?", verdict, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return records, nil
}

// CountAudit returns total accepted and rejected counts for the status
// surface.
func (s *Store) CountAudit(ctx context.Context) (accepted, rejected int64, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN verdict = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verdict = ? THEN 1 ELSE 0 END), 0)
		FROM audit_log`, model.VerdictAccepted, model.VerdictRejected)
	if err := row.Scan(&accepted, &rejected); err != nil {
		return 0, 0, fmt.Errorf("count audit records: %w", err)
	}
	return accepted, rejected, nil
}
