package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/config"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

// Settings keys for the single admin account. The CLI seeds these; there is
// no self-service signup.
const (
	settingAdminEmail        = "admin_email"
	settingAdminPasswordHash = "admin_password_hash"
)

// SystemHandler manages the gateway's own configuration: remote
// connections, API keys, admin sessions, and the audit log.
type SystemHandler struct {
	store   *config.Store
	authSvc *service.AuthService
	gateway *service.Gateway
	started time.Time
	version string
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(store *config.Store, authSvc *service.AuthService, gateway *service.Gateway, version string) *SystemHandler {
	return &SystemHandler{
		store:   store,
		authSvc: authSvc,
		gateway: gateway,
		started: time.Now(),
		version: version,
	}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"session_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	Email     string `json:"email"`
}

// Login authenticates the admin and returns a JWT session token. The
// admin account lives in the settings table, seeded by the CLI.
// POST /api/v1/system/admin/session
func (h *SystemHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	email, err := h.store.GetSetting(r.Context(), settingAdminEmail)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	passwordHash, err := h.store.GetSetting(r.Context(), settingAdminPasswordHash)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if req.Email != email || service.HashKey(req.Password) != passwordHash {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	ttl := 24 * time.Hour
	token, err := h.authSvc.IssueJWT(r.Context(), 1, email, ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(ttl.Seconds()),
		Email:     email,
	})
}

// Logout invalidates the current session. JWTs are stateless, so this is a
// server-side no-op; clients discard their token.
// DELETE /api/v1/system/admin/session
func (h *SystemHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Session invalidated",
	})
}

// ---------------------------------------------------------------------------
// Connection management
// ---------------------------------------------------------------------------

// ListConnections returns all configured remote connections. Secrets are
// never serialized; the model hides them.
// GET /api/v1/system/connection
func (h *SystemHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.store.ListConnections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list connections: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: conns,
		Meta:     &model.ResponseMeta{Count: len(conns)},
	})
}

// CreateConnection registers a new remote connection.
// POST /api/v1/system/connection
func (h *SystemHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var conn model.Connection
	if err := readJSON(r, &conn); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if conn.Name == "" {
		writeError(w, http.StatusBadRequest, "Connection name is required")
		return
	}
	if conn.JiraURL == "" && conn.XrayURL == "" {
		writeError(w, http.StatusBadRequest, "At least one of jira_url or xray_url is required")
		return
	}

	if existing, err := h.store.GetConnectionByName(r.Context(), conn.Name); err == nil && existing != nil {
		writeError(w, http.StatusConflict, "Connection already exists: "+conn.Name)
		return
	}

	conn.IsActive = true
	if err := h.store.CreateConnection(r.Context(), &conn); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create connection: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

// GetConnection returns one connection by name.
// GET /api/v1/system/connection/{connName}
func (h *SystemHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "connName")
	conn, err := h.store.GetConnectionByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Connection not found: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load connection: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// UpdateConnection updates an existing connection. Cached remote clients
// for the connection are dropped so new credentials take effect
// immediately.
// PUT /api/v1/system/connection/{connName}
func (h *SystemHandler) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "connName")
	existing, err := h.store.GetConnectionByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Connection not found: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load connection: "+err.Error())
		return
	}

	var update model.Connection
	if err := readJSON(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	update.ID = existing.ID
	update.Name = existing.Name
	// Blank credential fields keep their stored values, so a partial
	// update does not wipe secrets the client never sees.
	if update.APIToken == "" {
		update.APIToken = existing.APIToken
	}
	if update.ClientSecret == "" {
		update.ClientSecret = existing.ClientSecret
	}

	if err := h.store.UpdateConnection(r.Context(), &update); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update connection: "+err.Error())
		return
	}
	h.gateway.InvalidateClients(name)

	writeJSON(w, http.StatusOK, update)
}

// DeleteConnection removes a connection.
// DELETE /api/v1/system/connection/{connName}
func (h *SystemHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "connName")
	if err := h.store.DeleteConnection(r.Context(), name); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Connection not found: "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete connection: "+err.Error())
		return
	}
	h.gateway.InvalidateClients(name)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Connection deleted",
	})
}

// ---------------------------------------------------------------------------
// API key management
// ---------------------------------------------------------------------------

// ListAPIKeys returns all API keys (hashes are never serialized).
// GET /api/v1/system/api-key
func (h *SystemHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list API keys: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: keys,
		Meta:     &model.ResponseMeta{Count: len(keys)},
	})
}

type createAPIKeyRequest struct {
	Label     string     `json:"label"`
	ReadOnly  bool       `json:"read_only"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// createAPIKeyResponse includes the plaintext key (shown once only).
type createAPIKeyResponse struct {
	ID        int64      `json:"id"`
	Key       string     `json:"api_key"` // Plaintext, shown ONCE.
	KeyPrefix string     `json:"key_prefix"`
	Label     string     `json:"label"`
	ReadOnly  bool       `json:"read_only"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateAPIKey generates a new API key, stores its hash, and returns the
// plaintext key exactly once.
// POST /api/v1/system/api-key
func (h *SystemHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req createAPIKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate key: "+err.Error())
		return
	}
	plaintext := "xmk_" + hex.EncodeToString(rawBytes)
	keyPrefix := plaintext[:12] // "xmk_" + first 8 hex chars

	apiKey := &model.APIKey{
		KeyHash:   service.HashKey(plaintext),
		KeyPrefix: keyPrefix,
		Label:     req.Label,
		ReadOnly:  req.ReadOnly,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.store.CreateAPIKey(r.Context(), apiKey); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save API key: "+err.Error())
		return
	}

	// Return the plaintext key. This is the ONLY time it will be visible.
	writeJSON(w, http.StatusCreated, createAPIKeyResponse{
		ID:        apiKey.ID,
		Key:       plaintext,
		KeyPrefix: keyPrefix,
		Label:     apiKey.Label,
		ReadOnly:  apiKey.ReadOnly,
		IsActive:  apiKey.IsActive,
		ExpiresAt: apiKey.ExpiresAt,
		CreatedAt: apiKey.CreatedAt,
	})
}

// RevokeAPIKey deactivates an API key by ID.
// DELETE /api/v1/system/api-key/{keyId}
func (h *SystemHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "keyId")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid key ID: "+idStr)
		return
	}

	if err := h.store.RevokeAPIKey(r.Context(), id); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "API key not found: "+idStr)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to revoke API key: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "API key revoked",
	})
}

// ---------------------------------------------------------------------------
// Audit and status
// ---------------------------------------------------------------------------

// ListAudit returns recent audit records, newest first. Optional query
// params: verdict (accepted|rejected), limit.
// GET /api/v1/system/audit
func (h *SystemHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	verdict := queryString(r, "verdict")
	if verdict != "" && verdict != model.VerdictAccepted && verdict != model.VerdictRejected {
		writeError(w, http.StatusBadRequest, "verdict must be accepted or rejected")
		return
	}
	limit := queryInt(r, "limit", 100)

	records, err := h.store.ListAudit(r.Context(), verdict, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit records: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: records,
		Meta:     &model.ResponseMeta{Count: len(records)},
	})
}

// Status reports gateway uptime, version, and audit verdict totals.
// GET /api/v1/system/status
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	accepted, rejected, err := h.store.CountAudit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count audit records: "+err.Error())
		return
	}
	conns, err := h.store.ListConnections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list connections: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"connections":    len(conns),
		"queries": map[string]int64{
			"accepted": accepted,
			"rejected": rejected,
		},
	})
}
