package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// Principal represents the authenticated identity making the request.
// API-key principals may be read-only, which blocks mutation endpoints;
// admin principals come from a JWT session.
type Principal struct {
	Type     string // "admin" or "api_key"
	AdminID  int64
	KeyID    int64
	KeyLabel string
	ReadOnly bool
	IsAdmin  bool
}

// Authenticate returns an HTTP middleware that validates the request's
// credentials: an API key via the X-API-Key header, or a JWT bearer token
// via Authorization. On success a Principal is attached to the request
// context; on failure a 401 JSON error is written.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *Principal

			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				p, err := authSvc.ValidateAPIKey(r.Context(), apiKey)
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				principal = &Principal{
					Type:     "api_key",
					KeyID:    p.KeyID,
					KeyLabel: p.Label,
					ReadOnly: p.ReadOnly,
				}
			}

			if principal == nil {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					p, err := authSvc.ValidateJWT(r.Context(), strings.TrimPrefix(auth, "Bearer "))
					if err != nil {
						writeAuthError(w, http.StatusUnauthorized, "Invalid token")
						return
					}
					principal = &Principal{
						Type:    "admin",
						AdminID: p.AdminID,
						IsAdmin: true,
					}
				}
			}

			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized,
					"Authentication required. Provide X-API-Key header or Bearer token.")
				return
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces admin-level access. Must follow Authenticate in the
// middleware chain.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || !principal.IsAdmin {
				writeAuthError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireWritable rejects requests made with a read-only API key. Routes
// that forward mutations to the remote APIs sit behind this.
func RequireWritable() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal != nil && principal.ReadOnly {
				writeAuthError(w, http.StatusForbidden, "API key is read-only")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil for unauthenticated requests.
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + httpStatusString(status) + `,"message":"` + message + `"}}`))
}

func httpStatusString(code int) string {
	switch code {
	case 401:
		return "401"
	case 403:
		return "403"
	default:
		return "500"
	}
}
