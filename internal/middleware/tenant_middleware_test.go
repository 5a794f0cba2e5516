package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-secret"
	testTenant = "11111111-1111-1111-1111-111111111111"
)

func tenantEcho(t *testing.T, captured *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetTenantID(r)
		w.WriteHeader(http.StatusOK)
	})
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestTenantFromHeader(t *testing.T) {
	var captured string
	handler := TenantMiddleware(testSecret)(tenantEcho(t, &captured))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/push", nil)
	req.Header.Set("X-Tenant-ID", testTenant)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured != testTenant {
		t.Errorf("tenant in context = %q, want %q", captured, testTenant)
	}
}

func TestTenantMissing(t *testing.T) {
	var captured string
	handler := TenantMiddleware(testSecret)(tenantEcho(t, &captured))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/push", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if captured != "" {
		t.Error("handler ran without tenant context")
	}
}

func TestTenantHeaderNotUUID(t *testing.T) {
	handler := TenantMiddleware(testSecret)(tenantEcho(t, new(string)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/push", nil)
	req.Header.Set("X-Tenant-ID", "farm-42")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTenantFromBearerToken(t *testing.T) {
	var captured string
	handler := TenantMiddleware(testSecret)(tenantEcho(t, &captured))

	token := signToken(t, jwt.MapClaims{"tenant_id": testTenant}, testSecret)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/push", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured != testTenant {
		t.Errorf("tenant in context = %q, want %q", captured, testTenant)
	}
}

func TestTenantTokenWrongSecret(t *testing.T) {
	handler := TenantMiddleware(testSecret)(tenantEcho(t, new(string)))

	token := signToken(t, jwt.MapClaims{"tenant_id": testTenant}, "other-secret")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/push", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestTenantTokenMissingClaim(t *testing.T) {
	handler := TenantMiddleware(testSecret)(tenantEcho(t, new(string)))

	token := signToken(t, jwt.MapClaims{"sub": "someone"}, testSecret)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/push", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestTenantMalformedAuthorizationHeader(t *testing.T) {
	handler := TenantMiddleware(testSecret)(tenantEcho(t, new(string)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/push", nil)
	req.Header.Set("Authorization", "token-without-scheme")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
