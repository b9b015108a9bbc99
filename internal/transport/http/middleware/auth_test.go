package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"evalhub/internal/domain/auth"
)

func TestAuthAttachesUser(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{
		UserID:     "u1",
		OrgID:      "org-1",
		EmployeeID: "emp-1",
		Role:       auth.RoleHR,
	}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var user UserContext
	var ok bool
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ok {
		t.Fatal("expected user in context")
	}
	if user.UserID != "u1" || user.OrgID != "org-1" || user.EmployeeID != "emp-1" || user.Role != auth.RoleHR {
		t.Fatalf("unexpected user context: %+v", user)
	}
}

func TestAuthIgnoresInvalidToken(t *testing.T) {
	var ok bool
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if ok {
		t.Fatal("invalid token must leave the request anonymous")
	}
}

func TestRequirePermission(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{
		UserID: "u1", OrgID: "org-1", EmployeeID: "emp-1", Role: auth.RoleEmployee,
	}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Employees hold evaluations.read but not cycles.write.
	allowed := Auth(secret)(RequirePermission(auth.PermEvaluationsRead, auth.Permissions{})(next))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	allowed.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	denied := Auth(secret)(RequirePermission(auth.PermCyclesWrite, auth.Permissions{})(next))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	denied.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	anonymous := RequirePermission(auth.PermEvaluationsRead, auth.Permissions{})(next)
	rec = httptest.NewRecorder()
	anonymous.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
