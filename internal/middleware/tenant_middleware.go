package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"agrosync-server/pkg/response"
)

type contextKey string

const TenantIDKey contextKey = "tenantID"

// TenantMiddleware extracts the tenant identifier and attaches it to the
// request context before any handler runs. The identifier comes from the
// X-Tenant-ID header or, failing that, the tenant_id claim of a bearer token
// minted by the identity service. Routes registered outside the guarded
// subrouter (health, root) are exempt.
func TenantMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := r.Header.Get("X-Tenant-ID")

			if tenantID == "" {
				authHeader := r.Header.Get("Authorization")
				if authHeader != "" {
					parts := strings.Split(authHeader, " ")
					if len(parts) != 2 || parts[0] != "Bearer" {
						response.Unauthorized(w, "Invalid authorization header format")
						return
					}

					claimed, err := tenantFromToken(parts[1], jwtSecret)
					if err != nil {
						response.Unauthorized(w, "Invalid or expired token")
						return
					}
					tenantID = claimed
				}
			}

			if tenantID == "" {
				response.BadRequest(w, "Missing X-Tenant-ID header")
				return
			}

			if _, err := uuid.Parse(tenantID); err != nil {
				response.BadRequest(w, "Invalid X-Tenant-ID header format")
				return
			}

			ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tenantFromToken(tokenString, secret string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	tenantID, ok := claims["tenant_id"].(string)
	if !ok || tenantID == "" {
		return "", fmt.Errorf("token has no tenant_id claim")
	}
	return tenantID, nil
}

// GetTenantID returns the tenant bound to the request, or "" when the guard
// did not run.
func GetTenantID(r *http.Request) string {
	tenantID, ok := r.Context().Value(TenantIDKey).(string)
	if !ok {
		return ""
	}
	return tenantID
}
